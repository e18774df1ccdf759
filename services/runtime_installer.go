package services

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"fcc-bootstrap/internal/logger"
	"fcc-bootstrap/internal/utils"
)

/**
 * RuntimeInstaller downloads the official runtime and installs it for the current user
 * @property {string} root - Install root; standalone tarballs are unpacked into <root>/runtime
 * @property {string} downloadDir - Where installers are saved
 * @property {*http.Client} client - Must verify the public certificate chain
 */
type RuntimeInstaller struct {
	root        string
	downloadDir string
	goos        string
	urls        map[string]string
	client      *http.Client
	runner      utils.Runner
}

func NewRuntimeInstaller(root, downloadDir string, urls map[string]string, client *http.Client, runner utils.Runner) *RuntimeInstaller {
	return &RuntimeInstaller{
		root:        root,
		downloadDir: downloadDir,
		goos:        currentOS,
		urls:        urls,
		client:      client,
		runner:      runner,
	}
}

/**
 * Download and silently install a runtime
 * @returns {error} Missing URL for this OS, download or installer failure
 * @description
 * - windows: official .exe with /quiet per-user flags
 * - darwin: official .pkg into the user's home domain
 * - linux: standalone .tar.gz unpacked into <root>/runtime, which becomes the embedded interpreter
 */
func (ri *RuntimeInstaller) Install(ctx context.Context) error {
	urlStr := ri.urls[ri.goos]
	if urlStr == "" {
		return fmt.Errorf("no runtime installer configured for %s", ri.goos)
	}
	name := path.Base(urlStr)
	if name == "" || name == "/" || name == "." {
		name = "runtime-installer"
	}
	savePath := filepath.Join(ri.downloadDir, name)

	logger.Infof("Downloading runtime installer %s", urlStr)
	if err := utils.GetFile(ctx, ri.client, urlStr, savePath); err != nil {
		return err
	}
	defer os.Remove(savePath)

	var cmd utils.Command
	switch ri.goos {
	case "windows":
		cmd = utils.Command{Name: savePath, Args: []string{
			"/quiet",
			"InstallAllUsers=0",
			"PrependPath=1",
			"Include_launcher=1",
			"Include_pip=1",
			"Include_test=0",
		}}
	case "darwin":
		cmd = utils.Command{Name: "installer", Args: []string{"-pkg", savePath, "-target", "CurrentUserHomeDirectory"}}
	default:
		dest := filepath.Join(ri.root, "runtime")
		logger.Infof("Extracting runtime into %s", dest)
		if err := utils.ExtractTarGz(savePath, dest, 1); err != nil {
			return fmt.Errorf("extract runtime: %w", err)
		}
		return nil
	}

	logger.Infof("Running runtime installer: %s", cmd)
	if _, err := ri.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("runtime installer failed: %w", err)
	}
	return nil
}
