//go:build !unix && !windows

package utils

import (
	"fmt"
	"os/exec"
	"runtime"
)

// SetNewPG 默认实现，用于不支持的构建目标
func SetNewPG(cmd *exec.Cmd) {
}

func terminateProcess(pid int) error {
	return fmt.Errorf("terminate process not supported on %s", runtime.GOOS)
}

func IsProcessRunning(pid int) (bool, error) {
	return false, fmt.Errorf("process inspection not supported on %s", runtime.GOOS)
}

func IsElevated() bool {
	return false
}
