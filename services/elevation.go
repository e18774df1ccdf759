package services

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"fcc-bootstrap/internal/logger"
	"fcc-bootstrap/internal/utils"
)

/**
 * ElevationBroker re-executes this binary with administrative rights and waits for it
 * @property {string} self - Path of the current executable
 * @property {string} goos - Selects UAC (windows) or sudo (unix)
 * @property {[]string} forward - Global flags appended to every elevated invocation
 */
type ElevationBroker struct {
	self    string
	goos    string
	runner  utils.Runner
	forward []string
}

/**
 * @param {string} self - Path of the current executable
 * @param {...string} forward - Global flags the child needs to resolve the same install root and data dir
 */
func NewElevationBroker(self string, runner utils.Runner, forward ...string) *ElevationBroker {
	return &ElevationBroker{self: self, goos: currentOS, runner: runner, forward: forward}
}

// ForwardPaths 提权后 HOME 可能被重置，显式传递安装目录与数据目录
func ForwardPaths(installRoot, dataDir string) []string {
	var flags []string
	if installRoot != "" {
		flags = append(flags, "--root", installRoot)
	}
	if dataDir != "" {
		flags = append(flags, "--data-dir", dataDir)
	}
	return flags
}

/**
 * Run a subcommand of this binary elevated
 * @param {[]string} args - Subcommand and flags
 * @returns {int} Exit code of the elevated child
 * @returns {error} The child could not be started (prompt declined, sudo needs a password)
 */
func (eb *ElevationBroker) RunElevated(ctx context.Context, args []string) (int, error) {
	full := append(append([]string{}, args...), eb.forward...)
	cmd := eb.Command(full)
	logger.Infof("Requesting elevation: %s", cmd)
	_, err := eb.runner.Run(ctx, cmd)
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// Command 构造提权执行命令
func (eb *ElevationBroker) Command(args []string) utils.Command {
	if eb.goos == "windows" {
		quoted := make([]string, 0, len(args))
		for _, a := range args {
			quoted = append(quoted, "'"+psQuote(winArg(a))+"'")
		}
		script := fmt.Sprintf(
			"$p = Start-Process -FilePath '%s' -ArgumentList %s -Verb RunAs -Wait -PassThru -WindowStyle Hidden; exit $p.ExitCode",
			psQuote(eb.self), strings.Join(quoted, ","))
		return utils.Command{Name: "powershell", Args: []string{"-NoProfile", "-NonInteractive", "-Command", script}}
	}
	return utils.Command{Name: "sudo", Args: append([]string{"-n", eb.self}, args...)}
}

// psQuote 转义 PowerShell 单引号字符串
func psQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// winArg Start-Process 按空格拼接参数，含空格的参数需加双引号
func winArg(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}
