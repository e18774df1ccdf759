package env

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"fcc-bootstrap/internal/models"
)

// MarkerFileName 安装完成标记
const MarkerFileName = ".fcc_installed"

/**
 * BootstrapContext is the install state probed once at process start
 * @property {string} installRoot - Directory holding the application
 * @property {string} dataDir - Per-user data directory
 * @property {bool} markerPresent - Installation marker existed at start
 * @property {bool} shortcutPresent - Desktop entry existed at start
 * @property {bool} elevated - Process runs with administrative rights
 */
type BootstrapContext struct {
	InstallRoot     string
	DataDir         string
	CertDir         string
	DesktopDir      string
	MarkerPath      string
	ShortcutPath    string
	MarkerPresent   bool
	ShortcutPresent bool
	Elevated        bool
	OS              string
	StartTime       time.Time
}

/**
 * Create bootstrap context by probing the filesystem once
 * @param {string} installRoot - Install root
 * @param {string} dataDir - Per-user data directory
 * @param {string} desktopDir - Directory holding the shortcut
 * @param {string} shortcutName - Shortcut display name
 * @returns {*BootstrapContext} Probed context
 */
func NewBootstrapContext(installRoot, dataDir, desktopDir, shortcutName string) *BootstrapContext {
	ctx := &BootstrapContext{
		InstallRoot: installRoot,
		DataDir:     dataDir,
		CertDir:     filepath.Join(dataDir, "certs"),
		DesktopDir:  desktopDir,
		MarkerPath:  filepath.Join(installRoot, MarkerFileName),
		OS:          runtime.GOOS,
		StartTime:   time.Now(),
	}
	ctx.ShortcutPath = filepath.Join(desktopDir, ShortcutFileName(shortcutName, ctx.OS))
	ctx.MarkerPresent = fileExists(ctx.MarkerPath)
	ctx.ShortcutPresent = fileExists(ctx.ShortcutPath)
	return ctx
}

func (c *BootstrapContext) Mode() models.Mode {
	return models.ResolveMode(c.MarkerPresent, c.ShortcutPresent)
}

// ReadMarker 读取标记中记录的安装时间
func (c *BootstrapContext) ReadMarker() (time.Time, error) {
	data, err := os.ReadFile(c.MarkerPath)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
}

/**
 * Write installation marker
 * @param {time.Time} now - Install completion time, stored as RFC3339 UTC
 * @returns {error} Write failure
 */
func (c *BootstrapContext) WriteMarker(now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(c.MarkerPath), 0755); err != nil {
		return fmt.Errorf("create marker dir: %w", err)
	}
	data := now.UTC().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(c.MarkerPath, []byte(data), 0644); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	c.MarkerPresent = true
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
