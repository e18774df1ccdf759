package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"fcc-bootstrap/internal/config"
	"fcc-bootstrap/internal/env"
	"fcc-bootstrap/internal/logger"
	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/utils"
)

const (
	StepLock         = "lock"
	StepRuntime      = "runtime"
	StepEnvironment  = "environment"
	StepLicense      = "license"
	StepProcessGuard = "process-guard"
	StepCertificate  = "certificate"
	StepTrust        = "trust"
	StepCertHealth   = "cert-health"
	StepShortcut     = "shortcut"
	StepLaunch       = "launch"
	StepMarker       = "marker"
	StepReadiness    = "readiness"
	StepBrowser      = "browser"
	StepMetrics      = "metrics"
)

type Resolver interface {
	Resolve(ctx context.Context, allowInstall bool) (models.RuntimeCandidate, error)
}

type Preparer interface {
	Prepare(ctx context.Context, rt models.RuntimeCandidate) (models.RuntimeCandidate, error)
}

type Gate interface {
	Verify(ctx context.Context, rt models.RuntimeCandidate, stateless bool) (models.LicenseResult, error)
}

type Guard interface {
	ClearStaleProcesses(ctx context.Context) (int, []error)
}

type Authority interface {
	Paths() models.AuthorityPaths
	EnsureAuthority(ctx context.Context) (models.AuthorityPaths, error)
	HealthCheck(ctx context.Context) models.CertHealthReport
}

type TrustInstaller interface {
	InstallTrust(ctx context.Context, caPath string) []models.TrustAnchorRecord
	CopyPath() string
}

type Shortcuts interface {
	EnsureShortcut(ctx context.Context, d models.ShortcutDescriptor) (string, error)
}

type AppLauncher interface {
	Start(ctx context.Context, spec LaunchSpec) (int, error)
	Wait(ctx context.Context, healthURL string, maxAttempts int, delay time.Duration) models.HealthProbeResult
}

/**
 * Orchestrator sequences one bootstrap run
 * @property {*env.BootstrapContext} Boot - Install state probed at start; decides the mode
 * @property {*config.AppConfig} Cfg - Configuration
 * @property {string} Self - Executable the desktop entry launches
 * @property {bool} NoBrowser - Never open a browser
 * @property {bool} Stateless - License check does not persist activation
 */
type Orchestrator struct {
	Boot      *env.BootstrapContext
	Cfg       *config.AppConfig
	Self      string
	NoBrowser bool
	Stateless bool

	Resolver  Resolver
	Preparer  Preparer
	Gate      Gate
	Guard     Guard
	Authority Authority
	Trust     TrustInstaller
	Shortcuts Shortcuts
	Launcher  AppLauncher

	OpenBrowser func(ctx context.Context, url string) error
	PickPort    func(preferred, span int) (int, error)
	Lock        func() (release func(), err error)
	LoadCache   func() (*config.RuntimeCache, error)
	SaveCache   func(config.RuntimeCache) error
	Push        func(ctx context.Context) error
	Now         func() time.Time
}

type runState struct {
	report  *models.RunReport
	runtime models.RuntimeCandidate
	paths   models.AuthorityPaths
	port    int
}

/**
 * Run the bootstrap pipeline for the mode implied by the install state
 * @returns {*models.RunReport} Steps, warnings and the fatal error if the run aborted
 * @description
 * - INSTALL/REPAIR: runtime, license, process guard, environment, certificate, trust, health check, shortcut, launch
 * - QUICK_LAUNCH: cached runtime then launch; no guard, license, certificate, trust or shortcut step
 * - The marker is written (INSTALL only) once the application process has started
 */
func (o *Orchestrator) Run(ctx context.Context) *models.RunReport {
	st := &runState{report: &models.RunReport{Mode: o.Boot.Mode(), StartTime: o.now()}}
	report := st.report
	SetRunMode(report.Mode)
	logger.Infof("Bootstrap starting in %s mode (root: %s)", report.Mode, o.Boot.InstallRoot)

	defer func() {
		report.Duration = o.now().Sub(report.StartTime)
		if report.Fatal != nil {
			logger.Errorf("Bootstrap aborted: %v", report.Fatal)
		} else {
			logger.Infof("Bootstrap finished in %s with %d warning(s)", report.Duration, len(report.Warnings))
		}
	}()

	if release := o.lock(st); report.Fatal != nil {
		return report
	} else if release != nil {
		defer release()
	}

	var err error
	if report.Mode.Provisions() {
		err = o.provision(ctx, st)
	} else {
		err = o.step(st, StepRuntime, func() error { return o.quickRuntime(ctx, st) })
	}
	if err == nil {
		o.launch(ctx, st)
	}
	o.pushMetrics(ctx, st)
	return report
}

func (o *Orchestrator) lock(st *runState) func() {
	if o.Lock == nil {
		return nil
	}
	var release func()
	o.step(st, StepLock, func() error {
		r, err := o.Lock()
		if err == nil {
			release = r
			return nil
		}
		if errors.Is(err, utils.ErrLocked) {
			return models.NewFatal(StepLock, models.FatalLocked,
				"Another setup is already running. Wait for it to finish, then try again.", err)
		}
		logger.Warnf("Run lock unavailable, continuing without it: %v", err)
		return nil
	})
	return release
}

func (o *Orchestrator) provision(ctx context.Context, st *runState) error {
	report := st.report
	cfg := o.Cfg

	if err := o.step(st, StepRuntime, func() error {
		rt, err := o.Resolver.Resolve(ctx, report.Mode == models.ModeInstall)
		if err != nil {
			return models.NewFatal(StepRuntime, models.FatalRuntime,
				fmt.Sprintf("Install Python %s or newer manually, then rerun setup.", cfg.Runtime.MinVersion), err)
		}
		st.runtime = rt
		report.Runtime = rt
		return nil
	}); err != nil {
		return err
	}

	if err := o.step(st, StepLicense, func() error {
		res, err := o.Gate.Verify(ctx, st.runtime, o.Stateless)
		if err != nil {
			return models.NewFatal(StepLicense, models.FatalCollaborator,
				"The license verifier is missing from the installation. Reinstall the application.", err)
		}
		if !res.Passed {
			return models.NewFatal(StepLicense, models.FatalLicense, res.Reason, errors.New(res.Code))
		}
		return nil
	}); err != nil {
		return err
	}

	o.step(st, StepProcessGuard, func() error {
		n, errs := o.Guard.ClearStaleProcesses(ctx)
		if n > 0 {
			logger.Infof("Terminated %d stale process(es)", n)
		}
		for _, e := range errs {
			report.Warn(models.WarnProcessGuard, StepProcessGuard, e.Error(),
				"Close the application manually if files stay locked.")
		}
		return nil
	})

	// 旧进程退出后才重建 .venv
	if o.Preparer != nil && cfg.Runtime.Venv {
		if err := o.step(st, StepEnvironment, func() error {
			rt, err := o.Preparer.Prepare(ctx, st.runtime)
			if err != nil {
				return models.NewFatal(StepEnvironment, models.FatalEnvironment,
					"Check your network connection and rerun setup to reinstall dependencies.", err)
			}
			st.runtime = rt
			return nil
		}); err != nil {
			return err
		}
	}
	report.Runtime = st.runtime

	if err := o.step(st, StepCertificate, func() error {
		paths, err := o.Authority.EnsureAuthority(ctx)
		if err != nil {
			remediation := "Rerun setup; if it keeps failing, reinstall the application."
			switch {
			case errors.Is(err, ErrCertToolMissing):
				remediation = fmt.Sprintf("Place %s under %s or on PATH, then rerun setup.",
					cfg.Cert.Tool, filepath.Join(o.Boot.InstallRoot, "tools"))
			case errors.Is(err, ErrAuthorityIncomplete):
				remediation = fmt.Sprintf("Delete %s and rerun setup to create a new local authority.",
					filepath.Dir(o.Authority.Paths().RootCert))
			}
			return models.NewFatal(StepCertificate, models.FatalCollaborator, remediation, err)
		}
		st.paths = paths
		return nil
	}); err != nil {
		return err
	}

	o.step(st, StepTrust, func() error {
		report.Trust = o.Trust.InstallTrust(ctx, st.paths.RootCert)
		for _, rec := range report.Trust {
			if rec.Installed {
				continue
			}
			report.Warn(models.WarnDegradedTrust, StepTrust,
				fmt.Sprintf("%s trust store: %s", rec.Scope, rec.Error),
				fmt.Sprintf("Import %s manually (run 'fcc-bootstrap cert instructions'), then restart the browser.", o.Trust.CopyPath()))
		}
		return nil
	})

	o.step(st, StepCertHealth, func() error {
		hr := o.Authority.HealthCheck(ctx)
		for _, p := range hr.Problems {
			report.Warn(models.WarnCertificateHealth, StepCertHealth, p,
				fmt.Sprintf("Delete %s and rerun setup to regenerate the local authority.", filepath.Dir(st.paths.RootCert)))
		}
		return nil
	})

	o.step(st, StepShortcut, func() error {
		if _, err := o.Shortcuts.EnsureShortcut(ctx, o.shortcutDescriptor()); err != nil {
			report.Warn(models.WarnShortcut, StepShortcut, err.Error(),
				fmt.Sprintf("Start the application with %s instead.", o.Self))
		}
		return nil
	})
	return nil
}

func (o *Orchestrator) quickRuntime(ctx context.Context, st *runState) error {
	st.paths = o.Authority.Paths()
	if o.LoadCache != nil {
		cache, err := o.LoadCache()
		if err == nil && cache.InstallRoot == o.Boot.InstallRoot && utils.FileExists(cache.Runtime.Path) {
			st.runtime = cache.Runtime
			st.report.Runtime = cache.Runtime
			logger.Infof("Using cached runtime %s", cache.Runtime.Path)
			return nil
		}
		logger.Infof("Runtime cache unusable, re-resolving")
	}
	rt, err := o.Resolver.Resolve(ctx, false)
	if err != nil {
		return models.NewFatal(StepRuntime, models.FatalRuntime,
			"Delete the desktop shortcut and rerun setup to repair the installation.", err)
	}
	st.runtime = rt
	st.report.Runtime = rt
	return nil
}

func (o *Orchestrator) launch(ctx context.Context, st *runState) {
	report := st.report
	cfg := o.Cfg
	appLog := filepath.Join(o.Boot.DataDir, "logs", AppLogName)

	if err := o.step(st, StepLaunch, func() error {
		port, err := o.PickPort(cfg.Launch.Port, cfg.Launch.PortRange)
		if err != nil {
			return models.NewFatal(StepLaunch, models.FatalLaunch,
				fmt.Sprintf("Free a port between %d and %d, or set FCC_PORT.", cfg.Launch.Port, cfg.Launch.Port+cfg.Launch.PortRange), err)
		}
		st.port = port
		spec := LaunchSpec{
			Runtime: st.runtime,
			Entry:   filepath.Join(o.Boot.InstallRoot, cfg.Launch.Entry),
			WorkDir: o.Boot.InstallRoot,
			Env:     o.appEnv(st),
			LogPath: appLog,
		}
		if _, err := o.Launcher.Start(ctx, spec); err != nil {
			if errors.Is(err, ErrEntryMissing) {
				return models.NewFatal(StepLaunch, models.FatalCollaborator,
					"The application files are missing. Reinstall the application.", err)
			}
			return models.NewFatal(StepLaunch, models.FatalLaunch,
				fmt.Sprintf("See %s for details.", spec.LogPath), err)
		}
		return nil
	}); err != nil {
		return
	}

	if report.Mode.Provisions() && o.SaveCache != nil {
		cache := config.RuntimeCache{Runtime: st.runtime, InstallRoot: o.Boot.InstallRoot, ResolvedAt: o.now().UTC()}
		if err := o.SaveCache(cache); err != nil {
			logger.Warnf("Save runtime cache failed: %v", err)
		}
	}
	if report.Mode == models.ModeInstall {
		o.step(st, StepMarker, func() error {
			if err := o.Boot.WriteMarker(o.now()); err != nil {
				logger.Errorf("Write install marker failed: %v", err)
				report.Warn(models.WarnMarker, StepMarker, err.Error(),
					fmt.Sprintf("Check write access to %s; the next run will reinstall.", o.Boot.InstallRoot))
				return nil
			}
			report.MarkerWritten = true
			return nil
		})
	}

	report.URL = fmt.Sprintf("https://localhost:%d/", st.port)
	healthURL := fmt.Sprintf("https://%s:%d%s", utils.LoopbackHost, st.port, cfg.Launch.HealthPath)
	o.step(st, StepReadiness, func() error {
		probe := o.Launcher.Wait(ctx, healthURL, cfg.Launch.MaxAttempts, cfg.Launch.Delay)
		report.Probe = &probe
		if probe.Exited {
			report.Warn(models.WarnAppExited, StepReadiness,
				fmt.Sprintf("application exited with code %d before becoming ready", probe.ExitCode),
				fmt.Sprintf("See %s for details, then rerun setup.", appLog))
		} else if !probe.Ready {
			report.Warn(models.WarnReadinessTimeout, StepReadiness,
				fmt.Sprintf("application did not become ready after %d attempt(s): %s", probe.Attempts, probe.LastError),
				fmt.Sprintf("Open %s manually once the application has started.", report.URL))
		}
		return nil
	})

	if report.Probe != nil && report.Probe.Ready && cfg.Launch.OpenBrowser && !o.NoBrowser && o.OpenBrowser != nil {
		o.step(st, StepBrowser, func() error {
			if err := o.OpenBrowser(ctx, report.URL); err != nil {
				logger.Warnf("Unable to open browser automatically: %v", err)
				return nil
			}
			report.BrowserOpened = true
			return nil
		})
	}
}

func (o *Orchestrator) pushMetrics(ctx context.Context, st *runState) {
	if o.Push == nil {
		return
	}
	if err := o.Push(ctx); err != nil {
		logger.Warnf("Metrics push failed: %v", err)
		st.report.Warn(models.WarnMetrics, StepMetrics, err.Error(), "")
	}
}

func (o *Orchestrator) appEnv(st *runState) []string {
	cfg := o.Cfg
	envs := []string{
		"FCC_PORT=" + strconv.Itoa(st.port),
		"FORCE_HTTPS=true",
		"ALLOW_HTTP=false",
		"FLASK_ENV=production",
		"APP_MODE=" + cfg.Launch.AppMode,
		"PYTHONUTF8=1",
		"PYTHONIOENCODING=utf-8",
		"FCC_CERT_FILE=" + st.paths.ServerCert,
		"FCC_KEY_FILE=" + st.paths.ServerKey,
		"FCC_CA_FILE=" + st.paths.RootCert,
	}
	keys := make([]string, 0, len(cfg.Launch.Env))
	for k := range cfg.Launch.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		envs = append(envs, k+"="+cfg.Launch.Env[k])
	}
	return envs
}

func (o *Orchestrator) shortcutDescriptor() models.ShortcutDescriptor {
	icon := o.Cfg.Shortcut.Icon
	if icon != "" && !filepath.IsAbs(icon) {
		icon = filepath.Join(o.Boot.InstallRoot, icon)
	}
	return models.ShortcutDescriptor{
		Name:        o.Cfg.Shortcut.Name,
		Target:      o.Self,
		WorkingDir:  o.Boot.InstallRoot,
		Icon:        icon,
		Comment:     "Start the FCC platform",
		LegacyNames: o.Cfg.Shortcut.LegacyNames,
	}
}

/**
 * Run one step, recording it and its metrics
 * @returns {error} Only *models.FatalSetupError; it is also stored on the report
 */
func (o *Orchestrator) step(st *runState, name string, fn func() error) error {
	start := o.now()
	warningsBefore := len(st.report.Warnings)
	st.report.Ran(name)
	logger.Debugf("Step %s started", name)

	err := fn()
	outcome := OutcomeOK
	if err != nil {
		var fatal *models.FatalSetupError
		if !errors.As(err, &fatal) {
			fatal = models.NewFatal(name, models.FatalCollaborator, "", err)
		}
		st.report.Fatal = fatal
		outcome = OutcomeFatal
		err = fatal
	}
	for _, w := range st.report.Warnings[warningsBefore:] {
		CountWarning(w.Kind)
		if outcome == OutcomeOK {
			outcome = OutcomeWarning
		}
	}
	ObserveStep(name, outcome, o.now().Sub(start))
	return err
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
