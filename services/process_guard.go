package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"fcc-bootstrap/internal/logger"
	"fcc-bootstrap/internal/utils"
)

/**
 * ProcessGuard terminates stale processes running from the install root
 * @property {string} root - Only executables below this directory are touched
 * @property {bool} foldCase - Case-insensitive path comparison (Windows)
 */
type ProcessGuard struct {
	root      string
	foldCase  bool
	selfPid   int
	parentPid int
	list      func(ctx context.Context) ([]utils.ProcessInfo, error)
	terminate func(pid int) error
}

func NewProcessGuard(root string) *ProcessGuard {
	return &ProcessGuard{
		root:      root,
		foldCase:  utils.PathsFoldCase(),
		selfPid:   os.Getpid(),
		parentPid: os.Getppid(),
		list:      utils.ListProcesses,
		terminate: utils.TerminateProcess,
	}
}

/**
 * Terminate processes whose binary lives under the install root
 * @returns {int} Number of processes terminated
 * @returns {[]error} Individual failures; never fatal
 * @description
 * - The current process and its parent are never touched
 * - A process matches by resolved executable or by an absolute argv[0] under the root
 */
func (pg *ProcessGuard) ClearStaleProcesses(ctx context.Context) (int, []error) {
	procs, err := pg.list(ctx)
	if err != nil {
		logger.Warnf("Process enumeration failed: %v", err)
		return 0, []error{err}
	}
	var errs []error
	terminated := 0
	for _, p := range procs {
		pid := int(p.Pid)
		if pid == pg.selfPid || pid == pg.parentPid {
			continue
		}
		if !pg.managed(p) {
			continue
		}
		logger.Infof("Terminating stale process %s (PID: %d)", p.Exe, pid)
		if err := pg.terminate(pid); err != nil {
			logger.Warnf("Failed to terminate %s (PID: %d): %v", p.Exe, pid, err)
			errs = append(errs, fmt.Errorf("pid %d (%s): %w", pid, p.Exe, err))
			continue
		}
		terminated++
	}
	return terminated, errs
}

// managed 仅匹配可执行文件路径；参数里的脚本路径不算
func (pg *ProcessGuard) managed(p utils.ProcessInfo) bool {
	if utils.IsUnderRoot(p.Exe, pg.root, pg.foldCase) {
		return true
	}
	return filepath.IsAbs(p.Argv0) && utils.IsUnderRoot(p.Argv0, pg.root, pg.foldCase)
}
