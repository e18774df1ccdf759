package models

import (
	"errors"
	"testing"
)

func TestResolveMode(t *testing.T) {
	tests := []struct {
		marker, shortcut bool
		want             Mode
	}{
		{false, false, ModeInstall},
		{false, true, ModeInstall},
		{true, false, ModeRepair},
		{true, true, ModeQuickLaunch},
	}
	for _, tt := range tests {
		if got := ResolveMode(tt.marker, tt.shortcut); got != tt.want {
			t.Errorf("ResolveMode(%v, %v) = %s, want %s", tt.marker, tt.shortcut, got, tt.want)
		}
	}
	if ModeQuickLaunch.Provisions() {
		t.Error("QUICK_LAUNCH must not provision")
	}
}

func TestFatalSetupErrorExitCodes(t *testing.T) {
	cause := errors.New("boom")
	fatal := NewFatal("runtime", FatalRuntime, "install it", cause)
	if fatal.ExitCode() != ExitRuntime {
		t.Errorf("exit code = %d, want %d", fatal.ExitCode(), ExitRuntime)
	}
	if !errors.Is(fatal, cause) {
		t.Error("FatalSetupError should unwrap to its cause")
	}

	var report RunReport
	if report.ExitCode() != ExitOK {
		t.Error("report without fatal must exit 0")
	}
	report.Warn(WarnDegradedTrust, "trust", "machine scope failed", "")
	if report.ExitCode() != ExitOK {
		t.Error("warnings must not change exit code")
	}
	report.Fatal = NewFatal("license", FatalLicense, "", nil)
	if report.ExitCode() != ExitLicense {
		t.Errorf("exit code = %d, want %d", report.ExitCode(), ExitLicense)
	}
}
