package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

/**
 * Command describes one external process invocation
 * @property {string} name - Executable
 * @property {[]string} args - Arguments
 * @property {string} dir - Working directory, empty for current
 * @property {[]string} env - Extra KEY=VALUE entries appended to the current environment
 */
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner 执行外部命令，测试中可替换
type Runner interface {
	Run(ctx context.Context, cmd Command) (string, error)
}

// ExecRunner 基于 os/exec 的 Runner 实现
type ExecRunner struct{}

/**
 * Run command and collect combined output
 * @param {context.Context} ctx - Cancels the process when done
 * @param {Command} cmd - Command to run
 * @returns {string} Trimmed stdout and stderr
 * @returns {error} Start failure or non-zero exit, wrapped with output
 */
func (ExecRunner) Run(ctx context.Context, cmd Command) (string, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	var out bytes.Buffer
	c.Stdout = &out
	c.Stderr = &out
	err := c.Run()
	text := strings.TrimSpace(out.String())
	if err != nil {
		if ctx.Err() != nil {
			return text, fmt.Errorf("%s: %w", cmd.Name, ctx.Err())
		}
		if text != "" {
			return text, fmt.Errorf("%s: %w: %s", cmd.Name, err, lastLine(text))
		}
		return text, fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return text, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

/**
 * Look up an executable, preferring bundled directories over PATH
 * @param {string} name - Executable base name, without extension
 * @param {...string} dirs - Directories searched before PATH
 * @returns {string} Absolute path, empty when not found
 */
func LookPath(name string, dirs ...string) string {
	for _, dir := range dirs {
		for _, candidate := range executableNames(name) {
			p := dir + string(os.PathSeparator) + candidate
			if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
				return p
			}
		}
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	return ""
}

func executableNames(name string) []string {
	if runtime.GOOS == "windows" {
		return []string{name + ".exe", name + ".cmd", name + ".bat", name}
	}
	return []string{name}
}
