package services

import (
	"archive/tar"
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// AppLogName 应用标准输出/错误日志
const AppLogName = "app.log"

/**
 * LogService reads and packages the bootstrap and application logs
 * @property {string} logDir - <dataDir>/logs
 */
type LogService struct {
	logDir string
	extras []string
}

/**
 * Create log service
 * @param {string} logDir - Log directory
 * @param {...string} extras - Additional files added to diagnostic bundles when present
 * @example
 * ls := services.NewLogService(filepath.Join(cfg.DataDir, "logs"), config.RuntimeCachePath(cfg.DataDir))
 * lines, err := ls.Tail("fcc-bootstrap.log", 50)
 */
func NewLogService(logDir string, extras ...string) *LogService {
	return &LogService{logDir: logDir, extras: extras}
}

// LogFiles 日志目录下的 .log 文件，按名称排序
func (ls *LogService) LogFiles() ([]string, error) {
	entries, err := os.ReadDir(ls.logDir)
	if err != nil {
		return nil, fmt.Errorf("读取日志目录失败: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".log") {
			continue
		}
		files = append(files, filepath.Join(ls.logDir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

/**
 * Last lines of a log file
 * @param {string} name - File name under the log directory
 * @param {int} n - Number of lines, <= 0 for all
 */
func (ls *LogService) Tail(name string, n int) ([]string, error) {
	f, err := os.Open(filepath.Join(ls.logDir, name))
	if err != nil {
		return nil, fmt.Errorf("日志文件不存在: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, scanner.Err()
}

/**
 * Package all logs into a gzip tarball for support
 * @param {string} dest - Output path, empty for <logDir>/fcc-diagnostics-<time>.tar.gz
 * @returns {string} Path of the bundle
 */
func (ls *LogService) Bundle(dest string) (string, error) {
	files, err := ls.LogFiles()
	if err != nil {
		return "", err
	}
	for _, extra := range ls.extras {
		if _, err := os.Stat(extra); err == nil {
			files = append(files, extra)
		}
	}
	if len(files) == 0 {
		return "", fmt.Errorf("指定的目录中没有找到日志文件: %s", ls.logDir)
	}
	if dest == "" {
		dest = filepath.Join(ls.logDir, "fcc-diagnostics-"+time.Now().Format("20060102-150405")+".tar.gz")
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()
	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	for _, path := range files {
		if err := addToTar(tw, path, "fcc-diagnostics/"+filepath.Base(path)); err != nil {
			return "", err
		}
	}
	if err := tw.Close(); err != nil {
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}
	return dest, out.Close()
}

func addToTar(tw *tar.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
