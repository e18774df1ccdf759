package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fcc-bootstrap/internal/logger"
	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/utils"
)

/**
 * EnvironmentPreparer creates <root>/.venv and installs the application's requirements
 * @property {string} root - Install root holding requirements.txt
 * @property {string} dataDir - Where the lite requirement file is written
 * @property {[]string} liteRequirements - Fallback set installed when requirements.txt fails
 */
type EnvironmentPreparer struct {
	root             string
	dataDir          string
	goos             string
	liteRequirements []string
	runner           utils.Runner
}

func NewEnvironmentPreparer(root, dataDir string, lite []string, runner utils.Runner) *EnvironmentPreparer {
	return &EnvironmentPreparer{root: root, dataDir: dataDir, goos: currentOS, liteRequirements: lite, runner: runner}
}

func (ep *EnvironmentPreparer) venvPython() string {
	if ep.goos == "windows" {
		return filepath.Join(ep.root, ".venv", "Scripts", "python.exe")
	}
	return filepath.Join(ep.root, ".venv", "bin", "python3")
}

/**
 * Prepare the virtual environment
 * @param {models.RuntimeCandidate} rt - Base interpreter
 * @returns {models.RuntimeCandidate} The venv interpreter, or rt unchanged when there is no requirements.txt
 */
func (ep *EnvironmentPreparer) Prepare(ctx context.Context, rt models.RuntimeCandidate) (models.RuntimeCandidate, error) {
	reqs := filepath.Join(ep.root, "requirements.txt")
	if !utils.FileExists(reqs) {
		logger.Debugf("No requirements.txt under %s, skipping environment setup", ep.root)
		return rt, nil
	}

	venvPy := ep.venvPython()
	if !utils.FileExists(venvPy) {
		name, args := rt.Command("-m", "venv", filepath.Join(ep.root, ".venv"))
		logger.Infof("Creating virtual environment with %s", rt.Path)
		if _, err := ep.runner.Run(ctx, utils.Command{Name: name, Args: args, Dir: ep.root}); err != nil {
			return rt, fmt.Errorf("create venv: %w", err)
		}
	}

	pip := func(args ...string) error {
		_, err := ep.runner.Run(ctx, utils.Command{
			Name: venvPy,
			Args: append([]string{"-m", "pip"}, args...),
			Dir:  ep.root,
			Env:  []string{"PIP_DISABLE_PIP_VERSION_CHECK=1", "PYTHONUTF8=1"},
		})
		return err
	}
	if err := pip("install", "--upgrade", "pip"); err != nil {
		logger.Warnf("pip upgrade failed, continuing: %v", err)
	}
	if err := pip("install", "-r", reqs); err != nil {
		logger.Warnf("Installing requirements.txt failed: %v; trying lite requirements", err)
		if len(ep.liteRequirements) == 0 {
			return rt, fmt.Errorf("install requirements: %w", err)
		}
		lite := filepath.Join(ep.dataDir, "requirements-lite.txt")
		if err := os.MkdirAll(ep.dataDir, 0755); err != nil {
			return rt, err
		}
		if err := os.WriteFile(lite, []byte(strings.Join(ep.liteRequirements, "\n")+"\n"), 0644); err != nil {
			return rt, err
		}
		if err := pip("install", "-r", lite); err != nil {
			return rt, fmt.Errorf("install lite requirements: %w", err)
		}
	}
	return models.RuntimeCandidate{Path: venvPy, Source: models.SourceEmbedded, Version: rt.Version}, nil
}
