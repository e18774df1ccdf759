//go:build windows

package services

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"fcc-bootstrap/internal/logger"
	"fcc-bootstrap/internal/models"

	"github.com/hashicorp/go-version"
	"golang.org/x/sys/windows/registry"
)

var currentOS = runtime.GOOS

// userLocalRuntimes 注册表 PythonCore 条目与 %LOCALAPPDATA%\Programs\Python\Python3*
func userLocalRuntimes() []models.RuntimeCandidate {
	list := registryRuntimes(registry.CURRENT_USER)
	list = append(list, registryRuntimes(registry.LOCAL_MACHINE)...)

	local := os.Getenv("LOCALAPPDATA")
	if local == "" {
		local = filepath.Join(homeDir(), "AppData", "Local")
	}
	list = append(list, globNewestFirst(
		filepath.Join(local, "Programs", "Python", "Python3*"),
		"python.exe",
		pythonDirVersion)...)
	return list
}

func registryRuntimes(root registry.Key) []models.RuntimeCandidate {
	key, err := registry.OpenKey(root, `Software\Python\PythonCore`, registry.ENUMERATE_SUB_KEYS|registry.READ)
	if err != nil {
		return nil
	}
	defer key.Close()

	names, err := key.ReadSubKeyNames(-1)
	if err != nil {
		logger.Debugf("Read PythonCore registry failed: %v", err)
		return nil
	}
	var found []versionedPath
	for _, name := range names {
		v, err := version.NewVersion(name)
		if err != nil {
			continue
		}
		sub, err := registry.OpenKey(key, name+`\InstallPath`, registry.QUERY_VALUE)
		if err != nil {
			continue
		}
		exe, _, err := sub.GetStringValue("ExecutablePath")
		if err != nil || exe == "" {
			if dir, _, derr := sub.GetStringValue(""); derr == nil && dir != "" {
				exe = filepath.Join(dir, "python.exe")
			}
		}
		sub.Close()
		if exe != "" {
			found = append(found, versionedPath{path: exe, ver: v})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].ver.GreaterThan(found[j].ver) })
	out := make([]models.RuntimeCandidate, 0, len(found))
	for _, f := range found {
		out = append(out, models.RuntimeCandidate{Path: f.path, Source: models.SourceUserLocal})
	}
	return out
}
