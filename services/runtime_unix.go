//go:build !windows

package services

import (
	"path/filepath"
	"runtime"

	"fcc-bootstrap/internal/models"
)

var currentOS = runtime.GOOS

// userLocalRuntimes pyenv、~/.local 以及 macOS 框架安装
func userLocalRuntimes() []models.RuntimeCandidate {
	home := homeDir()
	var list []models.RuntimeCandidate
	if runtime.GOOS == "darwin" {
		list = append(list, globNewestFirst(
			"/Library/Frameworks/Python.framework/Versions/3.*",
			filepath.Join("bin", "python3"),
			func(base string) string { return base })...)
		list = append(list, globNewestFirst(
			"/opt/homebrew/opt/python@3.*",
			filepath.Join("bin", "python3"),
			func(base string) string { return base[len("python@"):] })...)
	}
	list = append(list, globNewestFirst(
		filepath.Join(home, ".pyenv", "versions", "3.*"),
		filepath.Join("bin", "python3"),
		func(base string) string { return base })...)
	list = append(list, models.RuntimeCandidate{Path: filepath.Join(home, ".local", "bin", "python3")})
	return list
}
