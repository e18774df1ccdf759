package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

var ErrLocked = errors.New("another bootstrap run is in progress")

// 测试中替换
var processAlive = IsProcessRunning

/**
 * LockInfo is the content of the run lock file
 * @property {int} pid - Owner process id
 * @property {time.Time} started - When the lock was taken
 * @property {string} runId - Unique id of the owning run
 */
type LockInfo struct {
	Pid     int       `json:"pid"`
	Started time.Time `json:"started"`
	RunID   string    `json:"runId"`
}

// RunLock 进程间互斥的运行锁(O_EXCL 创建锁文件)
type RunLock struct {
	path string
	info LockInfo
}

/**
 * Acquire the run lock
 * @param {string} path - Lock file path
 * @param {time.Duration} staleAfter - Age after which a lock is reclaimed even if its pid is alive
 * @returns {*RunLock} Held lock
 * @returns {error} ErrLocked wrapped with the holder when another live run owns it
 * @description
 * - A lock whose pid is gone, or older than staleAfter, is treated as stale and reclaimed once
 */
func AcquireRunLock(path string, staleAfter time.Duration) (*RunLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	info := LockInfo{Pid: os.Getpid(), Started: time.Now().UTC(), RunID: uuid.NewString()}
	for attempt := 0; attempt < 2; attempt++ {
		err := createLockFile(path, info)
		if err == nil {
			return &RunLock{path: path, info: info}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		holder, stale := inspectLock(path, staleAfter)
		if !stale {
			return nil, fmt.Errorf("%w (pid %d since %s)", ErrLocked, holder.Pid, holder.Started.Format(time.RFC3339))
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock: %w", err)
		}
	}
	return nil, ErrLocked
}

func createLockFile(path string, info LockInfo) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	data, _ := json.Marshal(info)
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func inspectLock(path string, staleAfter time.Duration) (LockInfo, bool) {
	var holder LockInfo
	data, err := os.ReadFile(path)
	if err != nil {
		return holder, errors.Is(err, os.ErrNotExist)
	}
	if err := json.Unmarshal(data, &holder); err != nil {
		// 可能是另一进程刚创建还未写完
		fi, statErr := os.Stat(path)
		return holder, statErr == nil && time.Since(fi.ModTime()) > 5*time.Second
	}
	if staleAfter > 0 && time.Since(holder.Started) > staleAfter {
		return holder, true
	}
	alive, _ := processAlive(holder.Pid)
	return holder, !alive
}

func (l *RunLock) Info() LockInfo {
	return l.info
}

// Release 仅删除自己持有的锁
func (l *RunLock) Release() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var holder LockInfo
	if json.Unmarshal(data, &holder) == nil && holder.RunID != l.info.RunID {
		return nil
	}
	return os.Remove(l.path)
}
