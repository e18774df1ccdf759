package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fcc-bootstrap/internal/env"
	"fcc-bootstrap/internal/logger"
	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/utils"
)

/**
 * ShortcutManager keeps the desktop entry point in sync with the install
 * @property {string} dir - Desktop directory
 * @property {string} goos - Selects .lnk, .command or .desktop
 */
type ShortcutManager struct {
	dir    string
	goos   string
	runner utils.Runner
}

func NewShortcutManager(dir string, runner utils.Runner) *ShortcutManager {
	return &ShortcutManager{dir: dir, goos: currentOS, runner: runner}
}

func (sm *ShortcutManager) PathFor(name string) string {
	return filepath.Join(sm.dir, env.ShortcutFileName(name, sm.goos))
}

/**
 * Create or overwrite the desktop entry
 * @param {models.ShortcutDescriptor} d - Entry to write
 * @returns {string} Path of the entry
 * @returns {error} Write failure; callers treat it as non-fatal
 * @description
 * - Target, working directory and icon are always rewritten, even when the entry exists
 * - Entries with legacy names are removed
 */
func (sm *ShortcutManager) EnsureShortcut(ctx context.Context, d models.ShortcutDescriptor) (string, error) {
	path := sm.PathFor(d.Name)
	for _, legacy := range d.LegacyNames {
		old := sm.PathFor(legacy)
		if old == path {
			continue
		}
		if err := os.Remove(old); err == nil {
			logger.Infof("Removed superseded shortcut %s", old)
		}
	}
	if err := os.MkdirAll(sm.dir, 0755); err != nil {
		return path, fmt.Errorf("create desktop dir: %w", err)
	}

	var err error
	switch sm.goos {
	case "windows":
		err = sm.writeWindows(ctx, path, d)
	case "darwin":
		_, err = utils.WriteFileIfChanged(path, []byte(commandScript(d)), 0755)
	default:
		_, err = utils.WriteFileIfChanged(path, []byte(desktopEntry(d)), 0755)
		if err == nil {
			// GNOME 需要标记为可信才允许双击启动
			if _, gerr := sm.runner.Run(ctx, utils.Command{Name: "gio", Args: []string{"set", path, "metadata::trusted", "true"}}); gerr != nil {
				logger.Debugf("gio set trusted failed: %v", gerr)
			}
		}
	}
	if err != nil {
		return path, err
	}
	logger.Infof("Shortcut written to %s", path)
	return path, nil
}

func (sm *ShortcutManager) writeWindows(ctx context.Context, path string, d models.ShortcutDescriptor) error {
	quoted := make([]string, 0, len(d.Args))
	for _, a := range d.Args {
		quoted = append(quoted, winArg(a))
	}
	lines := []string{
		"$s = (New-Object -ComObject WScript.Shell).CreateShortcut('" + psQuote(path) + "')",
		"$s.TargetPath = '" + psQuote(d.Target) + "'",
		"$s.Arguments = '" + psQuote(strings.Join(quoted, " ")) + "'",
		"$s.WorkingDirectory = '" + psQuote(d.WorkingDir) + "'",
	}
	if d.Icon != "" {
		lines = append(lines, "$s.IconLocation = '"+psQuote(d.Icon)+"'")
	}
	if d.Comment != "" {
		lines = append(lines, "$s.Description = '"+psQuote(d.Comment)+"'")
	}
	lines = append(lines, "$s.Save()")
	_, err := sm.runner.Run(ctx, utils.Command{
		Name: "powershell",
		Args: []string{"-NoProfile", "-NonInteractive", "-Command", strings.Join(lines, "; ")},
	})
	return err
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// commandScript macOS 可双击执行的 .command 脚本
func commandScript(d models.ShortcutDescriptor) string {
	parts := []string{shellQuote(d.Target)}
	for _, a := range d.Args {
		parts = append(parts, shellQuote(a))
	}
	return fmt.Sprintf("#!/bin/bash\ncd %s || exit 1\nexec %s\n", shellQuote(d.WorkingDir), strings.Join(parts, " "))
}

// desktopEntry freedesktop .desktop 条目
func desktopEntry(d models.ShortcutDescriptor) string {
	exec := []string{desktopQuote(d.Target)}
	for _, a := range d.Args {
		exec = append(exec, desktopQuote(a))
	}
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	b.WriteString("Version=1.0\n")
	fmt.Fprintf(&b, "Name=%s\n", d.Name)
	if d.Comment != "" {
		fmt.Fprintf(&b, "Comment=%s\n", d.Comment)
	}
	fmt.Fprintf(&b, "Exec=%s\n", strings.Join(exec, " "))
	fmt.Fprintf(&b, "Path=%s\n", d.WorkingDir)
	if d.Icon != "" {
		fmt.Fprintf(&b, "Icon=%s\n", d.Icon)
	}
	b.WriteString("Terminal=false\n")
	b.WriteString("Categories=Office;\n")
	return b.String()
}

func desktopQuote(s string) string {
	if !strings.ContainsAny(s, " \t\"'\\$`") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")
	return `"` + r.Replace(s) + `"`
}
