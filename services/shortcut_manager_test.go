package services

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/utils"
)

func testDescriptor(target string) models.ShortcutDescriptor {
	return models.ShortcutDescriptor{
		Name:        "FCC Platform",
		Target:      target,
		WorkingDir:  "/opt/fcc",
		Icon:        "/opt/fcc/static/icon.png",
		Comment:     "Start the FCC platform",
		LegacyNames: []string{"FCC", "Start FCC"},
	}
}

func TestEnsureShortcutLinuxOverwritesAndRemovesLegacy(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	sm := NewShortcutManager(dir, runner)
	sm.goos = "linux"
	legacy := filepath.Join(dir, "FCC.desktop")
	writeTestFile(t, legacy, "[Desktop Entry]\nExec=/old/path\n")
	writeTestFile(t, filepath.Join(dir, "FCC Platform.desktop"), "[Desktop Entry]\nExec=/stale/target\n")

	path, err := sm.EnsureShortcut(context.Background(), testDescriptor("/opt/fcc/fcc-bootstrap"))
	if err != nil {
		t.Fatalf("EnsureShortcut failed: %v", err)
	}
	if path != filepath.Join(dir, "FCC Platform.desktop") {
		t.Errorf("unexpected path %s", path)
	}
	if utils.FileExists(legacy) {
		t.Error("legacy entry should be removed")
	}
	content := string(readTestFile(t, path))
	for _, want := range []string{"Exec=/opt/fcc/fcc-bootstrap", "Path=/opt/fcc", "Icon=/opt/fcc/static/icon.png", "Name=FCC Platform"} {
		if !strings.Contains(content, want) {
			t.Errorf("desktop entry missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "/stale/target") {
		t.Error("existing entry must be overwritten")
	}
	if runner.CallsTo("gio") != 1 {
		t.Error("expected gio trusted marking")
	}
}

func TestEnsureShortcutDarwinScript(t *testing.T) {
	dir := t.TempDir()
	sm := NewShortcutManager(dir, &fakeRunner{})
	sm.goos = "darwin"
	d := testDescriptor("/Applications/FCC/fcc-bootstrap")
	d.WorkingDir = "/Applications/FCC's Tools"

	path, err := sm.EnsureShortcut(context.Background(), d)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, ".command") {
		t.Errorf("expected .command, got %s", path)
	}
	content := string(readTestFile(t, path))
	if !strings.HasPrefix(content, "#!/bin/bash\n") || !strings.Contains(content, `cd '/Applications/FCC'\''s Tools'`) {
		t.Errorf("unexpected script:\n%s", content)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if runtime.GOOS != "windows" && fi.Mode().Perm()&0100 == 0 {
		t.Error("script should be executable")
	}
}

func TestEnsureShortcutWindowsUsesShell(t *testing.T) {
	runner := &fakeRunner{}
	sm := NewShortcutManager(t.TempDir(), runner)
	sm.goos = "windows"
	d := testDescriptor(`C:\Program Files\FCC\fcc-bootstrap.exe`)

	path, err := sm.EnsureShortcut(context.Background(), d)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, ".lnk") {
		t.Errorf("expected .lnk, got %s", path)
	}
	calls := runner.Calls()
	if len(calls) != 1 || calls[0].Name != "powershell" {
		t.Fatalf("expected one powershell call, got %v", calls)
	}
	script := calls[0].Args[len(calls[0].Args)-1]
	for _, want := range []string{"WScript.Shell", `$s.TargetPath = 'C:\Program Files\FCC\fcc-bootstrap.exe'`, "$s.IconLocation", "$s.Save()"} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}
}

func TestDesktopQuote(t *testing.T) {
	if got := desktopQuote("/opt/fcc/run"); got != "/opt/fcc/run" {
		t.Errorf("plain path should be unquoted, got %s", got)
	}
	if got := desktopQuote("/opt/my app/run"); got != `"/opt/my app/run"` {
		t.Errorf("unexpected quoting: %s", got)
	}
}
