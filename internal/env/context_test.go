package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"fcc-bootstrap/internal/models"
)

func TestNewBootstrapContextModes(t *testing.T) {
	root := t.TempDir()
	desktop := t.TempDir()
	data := t.TempDir()

	ctx := NewBootstrapContext(root, data, desktop, "FCC Platform")
	if ctx.Mode() != models.ModeInstall {
		t.Fatalf("expected INSTALL without marker, got %s", ctx.Mode())
	}

	if err := ctx.WriteMarker(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)); err != nil {
		t.Fatalf("WriteMarker failed: %v", err)
	}
	ctx = NewBootstrapContext(root, data, desktop, "FCC Platform")
	if ctx.Mode() != models.ModeRepair {
		t.Fatalf("expected REPAIR with marker only, got %s", ctx.Mode())
	}

	if err := os.WriteFile(ctx.ShortcutPath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	ctx = NewBootstrapContext(root, data, desktop, "FCC Platform")
	if ctx.Mode() != models.ModeQuickLaunch {
		t.Fatalf("expected QUICK_LAUNCH with marker and shortcut, got %s", ctx.Mode())
	}
}

func TestMarkerRoundTrip(t *testing.T) {
	root := t.TempDir()
	ctx := NewBootstrapContext(root, t.TempDir(), t.TempDir(), "FCC")
	when := time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	if err := ctx.WriteMarker(when); err != nil {
		t.Fatal(err)
	}
	got, err := ctx.ReadMarker()
	if err != nil {
		t.Fatalf("ReadMarker failed: %v", err)
	}
	if !got.Equal(when) {
		t.Errorf("marker time = %v, want %v", got, when)
	}
	if _, err := os.Stat(filepath.Join(root, MarkerFileName)); err != nil {
		t.Errorf("marker not at install root: %v", err)
	}
}

func TestShortcutFileName(t *testing.T) {
	cases := map[string]string{
		"windows": "FCC.lnk",
		"darwin":  "FCC.command",
		"linux":   "FCC.desktop",
	}
	for goos, want := range cases {
		if got := ShortcutFileName("FCC", goos); got != want {
			t.Errorf("ShortcutFileName(%s) = %s, want %s", goos, got, want)
		}
	}
}
