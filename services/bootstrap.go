package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"fcc-bootstrap/internal/config"
	"fcc-bootstrap/internal/env"
	"fcc-bootstrap/internal/utils"
)

// LockFileName 运行锁文件，位于安装根目录
const LockFileName = ".fcc_bootstrap.lock"

// ToolDirs 随安装包附带的工具目录，优先于 PATH 搜索
func ToolDirs(root string) []string {
	return []string{filepath.Join(root, "tools"), filepath.Join(root, "bin")}
}

// NewCertManagerFromConfig 按配置创建证书管理器
func NewCertManagerFromConfig(cfg *config.AppConfig, certDir string, runner utils.Runner) *CertManager {
	cm := NewCertManager(certDir, cfg.Cert.Tool, ToolDirs(cfg.InstallRoot), cfg.Cert.Hosts, cfg.Cert.WarnDays, runner)
	if cfg.Cert.DialEndpoint {
		cm.SetEndpoint(fmt.Sprintf("%s:%d", utils.LoopbackHost, cfg.Launch.Port))
	}
	return cm
}

/**
 * Create the trust store adapter for this OS
 * @param {string} self - Executable re-invoked for the elevated machine scope
 * @param {bool} elevated - Process already has administrative rights
 */
func NewTrustStoreFromConfig(cfg *config.AppConfig, boot *env.BootstrapContext, certs *CertManager, self string, elevated bool, runner utils.Runner) *TrustStore {
	tool := utils.LookPath(cfg.Cert.Tool, ToolDirs(cfg.InstallRoot)...)
	plans := PlatformTrustPlans(currentOS, homeDir(), tool, certs.CARoot())
	return NewTrustStore(plans, runner, NewElevationBroker(self, runner, ForwardPaths(boot.InstallRoot, boot.DataDir)...), elevated, cfg.Trust.Elevate, boot.DesktopDir, cfg.Trust.CopyName)
}

/**
 * Wire the production collaborators from configuration
 * @param {*config.AppConfig} cfg - Loaded configuration
 * @param {*env.BootstrapContext} boot - Probed install state
 * @param {string} self - Path of the running executable
 * @returns {*Orchestrator} Ready to Run
 */
func NewOrchestrator(cfg *config.AppConfig, boot *env.BootstrapContext, self string) *Orchestrator {
	runner := utils.ExecRunner{}
	root := cfg.InstallRoot

	downloads := utils.NewHTTPClient(cfg.Runtime.DownloadTimeout, nil)
	installer := NewRuntimeInstaller(root, filepath.Join(cfg.DataDir, "downloads"), map[string]string{
		"windows": cfg.Runtime.InstallerURL,
		"darwin":  cfg.Runtime.MacInstallerURL,
		"linux":   cfg.Runtime.LinuxInstallerURL,
	}, downloads, runner)
	resolver := NewRuntimeResolver(root, cfg.Runtime.MinVersion, cfg.Runtime.ProbeTimeout, runner, installer)

	certs := NewCertManagerFromConfig(cfg, boot.CertDir, runner)
	licenseClient := utils.NewHTTPClient(cfg.License.Timeout, nil)

	o := &Orchestrator{
		Boot:      boot,
		Cfg:       cfg,
		Self:      self,
		Stateless: true,
		Resolver:  resolver,
		Preparer:  NewEnvironmentPreparer(root, cfg.DataDir, cfg.Runtime.LiteRequirements, runner),
		Gate:      NewLicenseGate(cfg.License, root, cfg.DataDir, cfg.AppVersion, licenseClient, runner),
		Guard:     NewProcessGuard(root),
		Authority: certs,
		Trust:     NewTrustStoreFromConfig(cfg, boot, certs, self, boot.Elevated, runner),
		Shortcuts: NewShortcutManager(boot.DesktopDir, runner),
		Launcher:  NewAuthorityLauncher(certs.Paths().RootCert, 3*time.Second),
		OpenBrowser: func(ctx context.Context, url string) error {
			return utils.OpenBrowser(ctx, runner, url)
		},
		PickPort: utils.PickPort,
		Lock: func() (func(), error) {
			lock, err := utils.AcquireRunLock(filepath.Join(root, LockFileName), cfg.Lock.StaleAfter)
			if err != nil {
				return nil, err
			}
			return func() { lock.Release() }, nil
		},
		LoadCache: func() (*config.RuntimeCache, error) { return config.LoadRuntimeCache(cfg.DataDir) },
		SaveCache: func(c config.RuntimeCache) error { return config.SaveRuntimeCache(cfg.DataDir, c) },
	}
	if cfg.Metrics.Pushgateway != "" {
		instance := MachineFingerprint()
		if len(instance) > 12 {
			instance = instance[:12]
		}
		o.Push = func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return PushMetrics(ctx, cfg.Metrics.Pushgateway, cfg.Metrics.Job, instance)
		}
	}
	return o
}
