package env

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppDirName 每用户数据目录名
const AppDirName = "FCC"

// 安装根目录，FCC_INSTALL_ROOT 可覆盖（默认为可执行文件所在目录）
var InstallRoot string = GetInstallRoot()

// 每用户数据目录(证书、日志、运行时缓存)
var DataDir string = GetDataDir()

/**
 * Get install root directory
 * @returns {string} FCC_INSTALL_ROOT when set, else the directory holding the executable
 */
func GetInstallRoot() string {
	if root := os.Getenv("FCC_INSTALL_ROOT"); root != "" {
		return root
	}
	exe, err := os.Executable()
	if err != nil {
		wd, _ := os.Getwd()
		return wd
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

/**
 * Get per-user application data directory
 * @returns {string} %LOCALAPPDATA%\FCC, ~/Library/Application Support/FCC or $XDG_DATA_HOME/fcc
 */
func GetDataDir() string {
	if dir := os.Getenv("FCC_DATA_DIR"); dir != "" {
		return dir
	}
	homeDir, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, AppDirName)
		}
		return filepath.Join(homeDir, "AppData", "Local", AppDirName)
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", AppDirName)
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "fcc")
		}
		return filepath.Join(homeDir, ".local", "share", "fcc")
	}
}

/**
 * Get the user-discoverable desktop directory
 * @returns {string} Desktop directory when it exists, otherwise the home directory
 */
func GetDesktopDir() string {
	homeDir, _ := os.UserHomeDir()
	candidates := []string{}
	if xdg := os.Getenv("XDG_DESKTOP_DIR"); xdg != "" {
		candidates = append(candidates, xdg)
	}
	if runtime.GOOS == "windows" {
		if od := os.Getenv("OneDrive"); od != "" {
			candidates = append(candidates, filepath.Join(od, "Desktop"))
		}
	}
	candidates = append(candidates, filepath.Join(homeDir, "Desktop"))
	for _, dir := range candidates {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return dir
		}
	}
	return homeDir
}

/**
 * Shortcut file name for the given display name on the given OS
 * @param {string} name - Display name
 * @param {string} goos - Target OS (runtime.GOOS)
 * @returns {string} "<name>.lnk", "<name>.command" or "<name>.desktop"
 */
func ShortcutFileName(name, goos string) string {
	switch goos {
	case "windows":
		return name + ".lnk"
	case "darwin":
		return name + ".command"
	default:
		return name + ".desktop"
	}
}
