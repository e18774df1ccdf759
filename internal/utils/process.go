package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

/**
 * ProcessInfo is a running process as seen by enumeration
 * @property {int32} pid - Process id
 * @property {string} exe - Absolute executable path, empty when not readable
 * @property {string} argv0 - First command line element as launched; venv interpreters are symlinks, so exe points elsewhere
 */
type ProcessInfo struct {
	Pid   int32
	Exe   string
	Argv0 string
	Name  string
}

/**
 * List running processes with their executable paths
 * @param {context.Context} ctx - Cancels enumeration
 * @returns {[]ProcessInfo} Processes whose executable or command line could be read
 * @description
 * - Processes we are not allowed to inspect are skipped silently
 */
func ListProcesses(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}
	infos := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		exe, _ := p.ExeWithContext(ctx)
		var argv0 string
		if args, err := p.CmdlineSliceWithContext(ctx); err == nil && len(args) > 0 {
			argv0 = args[0]
		}
		if exe == "" && argv0 == "" {
			continue
		}
		name, _ := p.NameWithContext(ctx)
		infos = append(infos, ProcessInfo{Pid: p.Pid, Exe: exe, Argv0: argv0, Name: name})
	}
	return infos, nil
}

/**
 * Check whether path lies inside root
 * @param {string} path - Candidate path
 * @param {string} root - Directory
 * @param {bool} foldCase - Compare case-insensitively (Windows file systems)
 * @returns {bool} True when path equals root or is below it on a separator boundary
 * @example
 * IsUnderRoot("/opt/fcc/bin/app", "/opt/fcc", false)  // true
 * IsUnderRoot("/opt/fcc2/app", "/opt/fcc", false)     // false
 */
func IsUnderRoot(path, root string, foldCase bool) bool {
	if path == "" || root == "" {
		return false
	}
	p := filepath.Clean(path)
	r := filepath.Clean(root)
	if foldCase {
		p = strings.ToLower(p)
		r = strings.ToLower(r)
	}
	if p == r {
		return true
	}
	if !strings.HasSuffix(r, string(filepath.Separator)) {
		r += string(filepath.Separator)
	}
	return strings.HasPrefix(p, r)
}

// PathsFoldCase 当前平台的文件路径是否大小写不敏感
func PathsFoldCase() bool {
	return runtime.GOOS == "windows"
}

/**
 * Terminate a process
 * @param {int} pid - Process id
 * @returns {error} Error when the process survives or cannot be signalled
 * @description
 * - unix: SIGTERM, wait up to 1s, then SIGKILL
 * - windows: TerminateProcess
 */
func TerminateProcess(pid int) error {
	if pid == os.Getpid() {
		return fmt.Errorf("refusing to terminate self (PID: %d)", pid)
	}
	return terminateProcess(pid)
}
