package proc

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fcc-bootstrap/internal/logger"
	"fcc-bootstrap/internal/utils"
)

/**
 * ProcessInstance 后台启动的应用进程
 * @property {string} title - 进程标题，用于显示
 * @property {string} command - 执行命令
 * @property {[]string} args - 命令参数
 * @property {string} workDir - 工作目录
 * @property {[]string} env - 追加到当前环境的 KEY=VALUE
 * @property {string} logPath - 标准输出/错误重定向到的文件，空则丢弃
 */
type ProcessInstance struct {
	Title     string    //显示用的名字
	Command   string    //进程启动命令
	Args      []string  //进程参数
	WorkDir   string    //工作目录
	Env       []string  //额外环境变量
	LogPath   string    //输出日志
	StartTime time.Time //启动时间
	pid       int
	exitCode  int
	exited    chan struct{}
	mutex     sync.Mutex
}

func NewProcessInstance(title, command string, args []string) *ProcessInstance {
	return &ProcessInstance{
		Title:   title,
		Command: command,
		Args:    args,
		exited:  make(chan struct{}),
	}
}

func (pi *ProcessInstance) Pid() int {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	return pi.pid
}

/**
 * StartDetached 启动进程，使其在引导程序退出后继续运行
 * @returns {error} 返回错误信息
 * @description
 * - 进程放入新的进程组，不随父进程退出
 * - 引导程序运行期间在后台回收进程，记录退出码
 */
func (pi *ProcessInstance) StartDetached() error {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	logger.Infof("Executing command: %s %s", pi.Command, strings.Join(pi.Args, " "))

	// 应用生命周期独立于引导程序，不使用 CommandContext
	cmd := exec.Command(pi.Command, pi.Args...)
	if pi.WorkDir != "" {
		cmd.Dir = pi.WorkDir
	}
	cmd.Env = append(os.Environ(), pi.Env...)

	var logFile *os.File
	if pi.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(pi.LogPath), 0755); err == nil {
			f, err := os.OpenFile(pi.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err == nil {
				logFile = f
				cmd.Stdout = f
				cmd.Stderr = f
			}
		}
	}
	utils.SetNewPG(cmd)

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			logFile.Close()
		}
		logger.Errorf("Failed to start process '%s', error: %v", pi.Title, err)
		return fmt.Errorf("start %s: %w", pi.Title, err)
	}
	// 子进程已继承文件句柄
	if logFile != nil {
		logFile.Close()
	}

	pi.pid = cmd.Process.Pid
	pi.StartTime = time.Now()
	logger.Infof("Process '%s' started (PID: %d)", pi.Title, pi.pid)

	go pi.watch(cmd)
	return nil
}

func (pi *ProcessInstance) watch(cmd *exec.Cmd) {
	err := cmd.Wait()
	code := -1
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}
	pi.mutex.Lock()
	pi.exitCode = code
	pid := pi.pid
	pi.mutex.Unlock()
	if err != nil {
		logger.Warnf("Process '%s' (PID: %d) exited: %v", pi.Title, pid, err)
	} else {
		logger.Infof("Process '%s' (PID: %d) exited with code %d", pi.Title, pid, code)
	}
	close(pi.exited)
}

// IsRunning 进程已启动且尚未退出
func (pi *ProcessInstance) IsRunning() bool {
	if pi.Pid() == 0 {
		return false
	}
	select {
	case <-pi.exited:
		return false
	default:
		return true
	}
}

// ExitCode 进程退出码，仍在运行返回 -1
func (pi *ProcessInstance) ExitCode() int {
	select {
	case <-pi.exited:
	default:
		return -1
	}
	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	return pi.exitCode
}
