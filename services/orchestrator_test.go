package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fcc-bootstrap/internal/config"
	"fcc-bootstrap/internal/env"
	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/utils"
)

type testRig struct {
	o          *Orchestrator
	resolver   *fakeResolver
	gate       *fakeGate
	guard      *fakeGuard
	authority  *fakeAuthority
	trust      *fakeTrust
	shortcuts  *fakeShortcuts
	launcher   *fakeLauncher
	browsed    []string
	savedCache *config.RuntimeCache
}

func testConfig(root, dataDir string) *config.AppConfig {
	return &config.AppConfig{
		InstallRoot: root,
		DataDir:     dataDir,
		AppVersion:  "1.0.0",
		Runtime:     config.RuntimeConfig{MinVersion: "3.11"},
		Launch: config.LaunchConfig{
			Entry:       "app_with_setup_wizard.py",
			Port:        8000,
			PortRange:   10,
			HealthPath:  "/health",
			MaxAttempts: 30,
			Delay:       2 * time.Second,
			AppMode:     "demo",
			OpenBrowser: true,
			Env:         map[string]string{"FCC_FEATURE_X": "on"},
		},
		Shortcut: config.ShortcutConfig{Name: "FCC Platform", LegacyNames: []string{"FCC"}},
	}
}

/**
 * Build an orchestrator over fakes
 * @param {bool} marker - Installation marker exists
 * @param {bool} shortcut - Desktop entry exists
 */
func newTestRig(t *testing.T, marker, shortcut bool) *testRig {
	t.Helper()
	root := t.TempDir()
	dataDir := t.TempDir()
	desktop := t.TempDir()
	if marker {
		writeTestFile(t, filepath.Join(root, env.MarkerFileName), "2026-01-01T00:00:00Z\n")
	}
	if shortcut {
		writeTestFile(t, filepath.Join(desktop, env.ShortcutFileName("FCC Platform", currentOS)), "")
	}
	boot := env.NewBootstrapContext(root, dataDir, desktop, "FCC Platform")
	cfg := testConfig(root, dataDir)
	certDir := filepath.Join(dataDir, "certs")

	rig := &testRig{
		resolver: &fakeResolver{result: models.RuntimeCandidate{Path: "/usr/bin/python3", Source: models.SourcePath, Version: "3.11.7"}},
		gate:     &fakeGate{result: models.LicenseResult{Passed: true, Code: "ok"}},
		guard:    &fakeGuard{},
		authority: &fakeAuthority{
			paths: models.AuthorityPaths{
				RootCert:   filepath.Join(certDir, "ca", "rootCA.pem"),
				RootKey:    filepath.Join(certDir, "ca", "rootCA-key.pem"),
				ServerCert: filepath.Join(certDir, "server.crt"),
				ServerKey:  filepath.Join(certDir, "server.key"),
			},
			health: models.CertHealthReport{Healthy: true},
		},
		trust: &fakeTrust{records: []models.TrustAnchorRecord{
			{Scope: models.ScopeMachine, Installed: true, Method: "elevated"},
			{Scope: models.ScopeUser, Installed: true, Method: "certutil-user"},
		}},
		shortcuts: &fakeShortcuts{},
		launcher:  &fakeLauncher{probe: models.HealthProbeResult{Ready: true, Attempts: 2, StatusCode: 200}},
	}
	rig.o = &Orchestrator{
		Boot:      boot,
		Cfg:       cfg,
		Self:      filepath.Join(root, "fcc-bootstrap"),
		Stateless: true,
		Resolver:  rig.resolver,
		Gate:      rig.gate,
		Guard:     rig.guard,
		Authority: rig.authority,
		Trust:     rig.trust,
		Shortcuts: rig.shortcuts,
		Launcher:  rig.launcher,
		OpenBrowser: func(ctx context.Context, url string) error {
			rig.browsed = append(rig.browsed, url)
			return nil
		},
		PickPort: func(preferred, span int) (int, error) { return preferred, nil },
		LoadCache: func() (*config.RuntimeCache, error) {
			return nil, errors.New("no cache")
		},
		SaveCache: func(c config.RuntimeCache) error {
			rig.savedCache = &c
			return nil
		},
	}
	return rig
}

func (r *testRig) markerExists() bool {
	return utils.FileExists(r.o.Boot.MarkerPath)
}

func envValue(envs []string, key string) string {
	for _, e := range envs {
		if strings.HasPrefix(e, key+"=") {
			return strings.TrimPrefix(e, key+"=")
		}
	}
	return ""
}

func TestRunInstallHappyPath(t *testing.T) {
	rig := newTestRig(t, false, false)
	report := rig.o.Run(context.Background())

	if report.Mode != models.ModeInstall {
		t.Fatalf("expected INSTALL, got %s", report.Mode)
	}
	if report.ExitCode() != models.ExitOK || report.Fatal != nil {
		t.Fatalf("expected success, got %v", report.Fatal)
	}
	for _, step := range []string{StepRuntime, StepLicense, StepProcessGuard, StepCertificate, StepTrust, StepCertHealth, StepShortcut, StepLaunch, StepMarker, StepReadiness, StepBrowser} {
		if !report.HasStep(step) {
			t.Errorf("step %s not executed: %v", step, report.Steps)
		}
	}
	if len(rig.resolver.calls) != 1 || !rig.resolver.calls[0] {
		t.Errorf("INSTALL must resolve with provisioning allowed: %v", rig.resolver.calls)
	}
	if !report.MarkerWritten || !rig.markerExists() {
		t.Error("marker must be written after a successful install")
	}
	if _, err := rig.o.Boot.ReadMarker(); err != nil {
		t.Errorf("marker unreadable: %v", err)
	}
	if !report.BrowserOpened || len(rig.browsed) != 1 || rig.browsed[0] != "https://localhost:8000/" {
		t.Errorf("browser not opened at the local URL: %v", rig.browsed)
	}
	if rig.launcher.waitURL != "https://127.0.0.1:8000/health" {
		t.Errorf("unexpected health URL %s", rig.launcher.waitURL)
	}
	if rig.savedCache == nil || rig.savedCache.Runtime.Path != "/usr/bin/python3" || rig.savedCache.InstallRoot != rig.o.Boot.InstallRoot {
		t.Errorf("runtime cache not saved: %+v", rig.savedCache)
	}
	if rig.shortcuts.last.Target != rig.o.Self || rig.shortcuts.last.WorkingDir != rig.o.Boot.InstallRoot {
		t.Errorf("unexpected shortcut descriptor %+v", rig.shortcuts.last)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("expected no warnings, got %+v", report.Warnings)
	}
}

func TestRunLaunchEnvironment(t *testing.T) {
	rig := newTestRig(t, false, false)
	rig.o.PickPort = func(preferred, span int) (int, error) { return preferred + 3, nil }
	report := rig.o.Run(context.Background())
	if report.Fatal != nil {
		t.Fatal(report.Fatal)
	}
	spec := rig.launcher.spec
	want := map[string]string{
		"FCC_PORT":         "8003",
		"FORCE_HTTPS":      "true",
		"ALLOW_HTTP":       "false",
		"FLASK_ENV":        "production",
		"APP_MODE":         "demo",
		"PYTHONUTF8":       "1",
		"PYTHONIOENCODING": "utf-8",
		"FCC_CERT_FILE":    rig.authority.paths.ServerCert,
		"FCC_KEY_FILE":     rig.authority.paths.ServerKey,
		"FCC_FEATURE_X":    "on",
	}
	for k, v := range want {
		if got := envValue(spec.Env, k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if spec.Entry != filepath.Join(rig.o.Boot.InstallRoot, "app_with_setup_wizard.py") || spec.WorkDir != rig.o.Boot.InstallRoot {
		t.Errorf("unexpected spec %+v", spec)
	}
	if report.URL != "https://localhost:8003/" {
		t.Errorf("unexpected URL %s", report.URL)
	}
}

func TestRunQuickLaunchSkipsProvisioning(t *testing.T) {
	rig := newTestRig(t, true, true)
	cached := filepath.Join(t.TempDir(), "python3")
	writeTestFile(t, cached, "")
	rig.o.LoadCache = func() (*config.RuntimeCache, error) {
		return &config.RuntimeCache{
			Runtime:     models.RuntimeCandidate{Path: cached, Source: models.SourceEmbedded},
			InstallRoot: rig.o.Boot.InstallRoot,
		}, nil
	}

	report := rig.o.Run(context.Background())
	if report.Mode != models.ModeQuickLaunch || report.Fatal != nil {
		t.Fatalf("expected successful QUICK_LAUNCH, got %s %v", report.Mode, report.Fatal)
	}
	if len(rig.resolver.calls) != 0 {
		t.Error("valid cache must not re-resolve")
	}
	if rig.gate.called || rig.guard.called || rig.authority.ensureCalls != 0 || rig.trust.called || rig.shortcuts.called {
		t.Error("QUICK_LAUNCH must skip license, guard, certificate, trust and shortcut steps")
	}
	for _, step := range []string{StepLicense, StepProcessGuard, StepCertificate, StepTrust, StepShortcut, StepMarker} {
		if report.HasStep(step) {
			t.Errorf("step %s must not run in QUICK_LAUNCH", step)
		}
	}
	if !rig.launcher.started || rig.launcher.spec.Runtime.Path != cached {
		t.Errorf("expected launch with cached runtime, got %+v", rig.launcher.spec)
	}
	if envValue(rig.launcher.spec.Env, "FCC_CERT_FILE") != rig.authority.paths.ServerCert {
		t.Error("QUICK_LAUNCH must still pass the certificate paths")
	}
	if rig.savedCache != nil {
		t.Error("QUICK_LAUNCH must not rewrite the cache")
	}
}

func TestRunQuickLaunchStaleCacheReresolves(t *testing.T) {
	rig := newTestRig(t, true, true)
	rig.o.LoadCache = func() (*config.RuntimeCache, error) {
		return &config.RuntimeCache{
			Runtime:     models.RuntimeCandidate{Path: filepath.Join(t.TempDir(), "gone")},
			InstallRoot: rig.o.Boot.InstallRoot,
		}, nil
	}
	report := rig.o.Run(context.Background())
	if report.Fatal != nil {
		t.Fatal(report.Fatal)
	}
	if len(rig.resolver.calls) != 1 || rig.resolver.calls[0] {
		t.Errorf("stale cache must re-resolve without provisioning: %v", rig.resolver.calls)
	}

	rig = newTestRig(t, true, true)
	rig.resolver.err = ErrNoRuntime
	report = rig.o.Run(context.Background())
	if report.ExitCode() != models.ExitRuntime {
		t.Errorf("expected runtime exit code, got %d", report.ExitCode())
	}
}

func TestRunRepairRecreatesShortcut(t *testing.T) {
	rig := newTestRig(t, true, false)
	report := rig.o.Run(context.Background())
	if report.Mode != models.ModeRepair || report.Fatal != nil {
		t.Fatalf("expected successful REPAIR, got %s %v", report.Mode, report.Fatal)
	}
	if len(rig.resolver.calls) != 1 || rig.resolver.calls[0] {
		t.Errorf("REPAIR must not provision a runtime: %v", rig.resolver.calls)
	}
	if !rig.shortcuts.called || !rig.trust.called || rig.authority.ensureCalls != 1 {
		t.Error("REPAIR must re-run certificate, trust and shortcut steps")
	}
	if report.HasStep(StepMarker) || report.MarkerWritten {
		t.Error("REPAIR must not rewrite the marker")
	}
}

func TestRunLicenseFailureAbortsBeforeMutation(t *testing.T) {
	rig := newTestRig(t, false, false)
	rig.gate.result = models.LicenseResult{Passed: false, Code: "license_expired", Reason: HumanizeLicenseError("license_expired")}

	report := rig.o.Run(context.Background())
	if report.ExitCode() != models.ExitLicense {
		t.Fatalf("expected license exit code, got %d", report.ExitCode())
	}
	if report.Fatal.Remediation != "This license has expired." {
		t.Errorf("unexpected remediation %q", report.Fatal.Remediation)
	}
	if rig.authority.ensureCalls != 0 || rig.trust.called || rig.shortcuts.called || rig.launcher.started {
		t.Error("license failure must abort before certificate, trust, shortcut and launch")
	}
	if rig.markerExists() {
		t.Error("marker must not be written on fatal abort")
	}
}

func TestRunLicenseCollaboratorMissing(t *testing.T) {
	rig := newTestRig(t, false, false)
	rig.gate.err = fmt.Errorf("%w: /opt/fcc/license_manager.py", ErrLicenseScriptMissing)
	report := rig.o.Run(context.Background())
	if report.ExitCode() != models.ExitCollaborator {
		t.Errorf("expected collaborator exit code, got %d", report.ExitCode())
	}
}

func TestRunDegradedTrustStillSucceeds(t *testing.T) {
	rig := newTestRig(t, false, false)
	rig.trust.records = []models.TrustAnchorRecord{
		{Scope: models.ScopeMachine, Installed: false, Method: "elevated", Error: "administrator rights required"},
		{Scope: models.ScopeUser, Installed: true, Method: "certutil-user"},
	}

	report := rig.o.Run(context.Background())
	if report.ExitCode() != models.ExitOK {
		t.Fatalf("degraded trust must not be fatal: %v", report.Fatal)
	}
	if len(report.Warnings) != 1 || report.Warnings[0].Kind != models.WarnDegradedTrust {
		t.Fatalf("expected one DegradedTrustWarning, got %+v", report.Warnings)
	}
	if !strings.Contains(report.Warnings[0].Remediation, rig.trust.CopyPath()) {
		t.Errorf("remediation should point to the copy: %s", report.Warnings[0].Remediation)
	}
	if !rig.markerExists() || !rig.launcher.started {
		t.Error("install must complete with degraded trust")
	}
}

func TestRunReadinessTimeout(t *testing.T) {
	rig := newTestRig(t, false, false)
	rig.launcher.probe = models.HealthProbeResult{Ready: false, Attempts: 30, LastError: "connection refused"}

	report := rig.o.Run(context.Background())
	if report.ExitCode() != models.ExitOK {
		t.Fatalf("readiness timeout must not be fatal: %v", report.Fatal)
	}
	if len(report.Warnings) != 1 || report.Warnings[0].Kind != models.WarnReadinessTimeout {
		t.Fatalf("expected ReadinessTimeoutWarning, got %+v", report.Warnings)
	}
	if !strings.Contains(report.Warnings[0].Remediation, "https://localhost:8000/") {
		t.Errorf("remediation should carry the manual URL: %s", report.Warnings[0].Remediation)
	}
	if report.BrowserOpened || len(rig.browsed) != 0 || report.HasStep(StepBrowser) {
		t.Error("browser must not open when not ready")
	}
	if !report.MarkerWritten {
		t.Error("marker is written once the application started")
	}
}

func TestRunNoBrowserFlag(t *testing.T) {
	rig := newTestRig(t, false, false)
	rig.o.NoBrowser = true
	report := rig.o.Run(context.Background())
	if report.BrowserOpened || len(rig.browsed) != 0 {
		t.Error("--no-browser must suppress the browser")
	}
}

func TestRunFatalClassification(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *testRig)
		code  int
	}{
		{"no runtime", func(r *testRig) { r.resolver.err = ErrNoRuntime }, models.ExitRuntime},
		{"cert tool missing", func(r *testRig) {
			r.authority.err = fmt.Errorf("%w: mkcert", ErrCertToolMissing)
		}, models.ExitCollaborator},
		{"authority incomplete", func(r *testRig) {
			r.authority.err = fmt.Errorf("%w: /data/certs/ca", ErrAuthorityIncomplete)
		}, models.ExitCollaborator},
		{"entry missing", func(r *testRig) {
			r.launcher.startErr = fmt.Errorf("%w: app.py", ErrEntryMissing)
		}, models.ExitCollaborator},
		{"start failure", func(r *testRig) { r.launcher.startErr = errors.New("exec format error") }, models.ExitLaunch},
		{"no port", func(r *testRig) {
			r.o.PickPort = func(int, int) (int, error) { return 0, errors.New("no free port") }
		}, models.ExitLaunch},
		{"locked", func(r *testRig) {
			r.o.Lock = func() (func(), error) { return nil, fmt.Errorf("%w (pid 12)", utils.ErrLocked) }
		}, models.ExitLocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newTestRig(t, false, false)
			tt.setup(rig)
			report := rig.o.Run(context.Background())
			if report.ExitCode() != tt.code {
				t.Fatalf("exit code = %d, want %d (%v)", report.ExitCode(), tt.code, report.Fatal)
			}
			if report.Fatal.Remediation == "" {
				t.Error("fatal errors must carry a remediation")
			}
			if rig.markerExists() || report.MarkerWritten {
				t.Error("marker must not be written on fatal abort")
			}
		})
	}
}

func TestRunLockedStopsImmediately(t *testing.T) {
	rig := newTestRig(t, false, false)
	rig.o.Lock = func() (func(), error) { return nil, utils.ErrLocked }
	report := rig.o.Run(context.Background())
	if len(report.Steps) != 1 || report.Steps[0] != StepLock {
		t.Errorf("only the lock step should run, got %v", report.Steps)
	}
	if len(rig.resolver.calls) != 0 {
		t.Error("resolver must not run while locked")
	}
}

func TestRunLockReleased(t *testing.T) {
	rig := newTestRig(t, false, false)
	released := false
	rig.o.Lock = func() (func(), error) { return func() { released = true }, nil }
	rig.o.Run(context.Background())
	if !released {
		t.Error("lock must be released when the run ends")
	}

	rig = newTestRig(t, false, false)
	rig.o.Lock = func() (func(), error) { return nil, errors.New("read-only file system") }
	if report := rig.o.Run(context.Background()); report.Fatal != nil {
		t.Errorf("unavailable lock file must not abort: %v", report.Fatal)
	}
}

func TestRunNonFatalWarningsAggregate(t *testing.T) {
	rig := newTestRig(t, false, false)
	rig.guard.errs = []error{errors.New("pid 10: access denied")}
	rig.authority.health = models.CertHealthReport{Problems: []string{"root authority expires in 3 days"}}
	rig.shortcuts.err = errors.New("desktop is read-only")
	rig.o.Push = func(ctx context.Context) error { return errors.New("pushgateway unreachable") }

	report := rig.o.Run(context.Background())
	if report.ExitCode() != models.ExitOK {
		t.Fatalf("warnings must not be fatal: %v", report.Fatal)
	}
	kinds := map[models.WarningKind]bool{}
	for _, w := range report.Warnings {
		kinds[w.Kind] = true
	}
	for _, k := range []models.WarningKind{models.WarnProcessGuard, models.WarnCertificateHealth, models.WarnShortcut, models.WarnMetrics} {
		if !kinds[k] {
			t.Errorf("missing warning %s in %+v", k, report.Warnings)
		}
	}
	if !report.MarkerWritten {
		t.Error("install must complete despite warnings")
	}
}

type fakePreparer struct {
	called     bool
	err        error
	guard      *fakeGuard
	guardFirst bool
	base       string
}

func (f *fakePreparer) Prepare(ctx context.Context, rt models.RuntimeCandidate) (models.RuntimeCandidate, error) {
	f.called = true
	f.base = rt.Path
	if f.guard != nil {
		f.guardFirst = f.guard.called
	}
	if f.err != nil {
		return rt, f.err
	}
	return models.RuntimeCandidate{Path: "/opt/fcc/.venv/bin/python3", Source: models.SourceEmbedded, Version: rt.Version}, nil
}

func TestRunEnvironmentStep(t *testing.T) {
	rig := newTestRig(t, false, false)
	prep := &fakePreparer{}
	rig.o.Preparer = prep
	rig.o.Cfg.Runtime.Venv = true

	report := rig.o.Run(context.Background())
	if report.Fatal != nil {
		t.Fatalf("unexpected fatal: %v", report.Fatal)
	}
	if !prep.called || !report.HasStep(StepEnvironment) {
		t.Fatal("environment step must run when venv is enabled")
	}
	if rig.launcher.spec.Runtime.Path != "/opt/fcc/.venv/bin/python3" {
		t.Errorf("launch must use the prepared runtime, got %s", rig.launcher.spec.Runtime.Path)
	}

	disabled := newTestRig(t, false, false)
	skipped := &fakePreparer{}
	disabled.o.Preparer = skipped
	disabled.o.Run(context.Background())
	if skipped.called {
		t.Error("environment step must not run when venv is disabled")
	}
}

func TestRunEnvironmentFailureIsFatal(t *testing.T) {
	rig := newTestRig(t, false, false)
	rig.o.Preparer = &fakePreparer{err: errors.New("pip failed")}
	rig.o.Cfg.Runtime.Venv = true

	report := rig.o.Run(context.Background())
	if report.Fatal == nil || report.ExitCode() != models.ExitEnvironment {
		t.Fatalf("expected exit %d, got %d", models.ExitEnvironment, report.ExitCode())
	}
	if rig.authority.ensureCalls != 0 || rig.launcher.started || rig.markerExists() {
		t.Error("nothing after the environment step may run")
	}
	if !rig.gate.called || !rig.guard.called {
		t.Error("license and process guard run before the environment step")
	}
}

func TestRunGuardBeforeEnvironment(t *testing.T) {
	rig := newTestRig(t, false, false)
	prep := &fakePreparer{guard: rig.guard}
	rig.o.Preparer = prep
	rig.o.Cfg.Runtime.Venv = true

	report := rig.o.Run(context.Background())
	if report.Fatal != nil {
		t.Fatalf("unexpected fatal: %v", report.Fatal)
	}
	if !prep.guardFirst {
		t.Error("stale processes must be cleared before the venv is rebuilt")
	}
	if prep.base != "/usr/bin/python3" {
		t.Errorf("environment must be built from the resolved interpreter, got %s", prep.base)
	}
	want := []string{StepRuntime, StepLicense, StepProcessGuard, StepEnvironment, StepCertificate}
	var got []string
	for _, step := range report.Steps {
		for _, w := range want {
			if step == w {
				got = append(got, step)
			}
		}
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("unexpected step order %v", got)
	}
}

func TestRunLicenseUsesBaseInterpreter(t *testing.T) {
	rig := newTestRig(t, false, false)
	rig.o.Preparer = &fakePreparer{}
	rig.o.Cfg.Runtime.Venv = true
	rig.gate.result = models.LicenseResult{Passed: false, Code: "invalid_license", Reason: HumanizeLicenseError("invalid_license")}

	report := rig.o.Run(context.Background())
	if report.ExitCode() != models.ExitLicense {
		t.Fatalf("expected license exit code, got %d", report.ExitCode())
	}
	if rig.gate.runtime.Path != "/usr/bin/python3" {
		t.Errorf("license must be verified with the base interpreter, got %s", rig.gate.runtime.Path)
	}
	if report.HasStep(StepEnvironment) {
		t.Error("environment must not be prepared after a license rejection")
	}
	if report.Runtime.Path != "/usr/bin/python3" {
		t.Errorf("report should carry the resolved runtime, got %s", report.Runtime.Path)
	}
}

func TestRunAppExitedEarly(t *testing.T) {
	rig := newTestRig(t, false, false)
	rig.launcher.probe = models.HealthProbeResult{Ready: false, Attempts: 2, Exited: true, ExitCode: 3, LastError: "application exited with code 3"}

	report := rig.o.Run(context.Background())
	if report.ExitCode() != models.ExitOK {
		t.Fatalf("early exit is reported as a warning: %v", report.Fatal)
	}
	if len(report.Warnings) != 1 || report.Warnings[0].Kind != models.WarnAppExited {
		t.Fatalf("expected AppExitedWarning, got %+v", report.Warnings)
	}
	w := report.Warnings[0]
	if !strings.Contains(w.Message, "code 3") {
		t.Errorf("warning should carry the exit code: %s", w.Message)
	}
	if !strings.Contains(w.Remediation, filepath.Join(rig.o.Boot.DataDir, "logs", AppLogName)) {
		t.Errorf("remediation should point to the app log: %s", w.Remediation)
	}
	if report.BrowserOpened {
		t.Error("browser must not open for a dead application")
	}
}

func TestRunMarkerWriteFailureWarns(t *testing.T) {
	rig := newTestRig(t, false, false)
	// 目录占位使写入失败
	if err := os.MkdirAll(rig.o.Boot.MarkerPath, 0755); err != nil {
		t.Fatal(err)
	}

	report := rig.o.Run(context.Background())
	if report.Fatal != nil {
		t.Fatalf("marker failure is not fatal: %v", report.Fatal)
	}
	if report.MarkerWritten {
		t.Error("marker must not be reported as written")
	}
	if len(report.Warnings) != 1 || report.Warnings[0].Kind != models.WarnMarker {
		t.Fatalf("expected MarkerWarning, got %+v", report.Warnings)
	}
	if !strings.Contains(report.Warnings[0].Remediation, rig.o.Boot.InstallRoot) {
		t.Errorf("remediation should name the install root: %s", report.Warnings[0].Remediation)
	}
}
