package services

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/utils"
)

type fakeProvisioner struct {
	calls int
	fn    func() error
}

func (f *fakeProvisioner) Install(ctx context.Context) error {
	f.calls++
	if f.fn == nil {
		return nil
	}
	return f.fn()
}

// versionRunner 按解释器路径返回版本号，未知路径视为无法执行
func versionRunner(versions map[string]string) *fakeRunner {
	return &fakeRunner{fn: func(cmd utils.Command) (string, error) {
		if v, ok := versions[cmd.Name]; ok {
			return "Python " + v, nil
		}
		return "", exec.ErrNotFound
	}}
}

func newTestResolver(root string, runner utils.Runner, prov RuntimeProvisioner, onPath map[string]string) *RuntimeResolver {
	r := NewRuntimeResolver(root, "3.11", time.Second, runner, prov)
	r.goos = "linux"
	r.userLocal = nil
	r.lookPath = func(name string) (string, error) {
		if p, ok := onPath[name]; ok {
			return p, nil
		}
		return "", exec.ErrNotFound
	}
	return r
}

func TestResolveEmbeddedWinsOverPath(t *testing.T) {
	root := t.TempDir()
	embedded := filepath.Join(root, ".venv", "bin", "python3")
	writeTestFile(t, embedded, "")
	runner := versionRunner(map[string]string{
		embedded:          "3.11.4",
		"/usr/bin/python3": "3.12.1",
	})
	r := newTestResolver(root, runner, nil, map[string]string{"python3": "/usr/bin/python3"})

	rt, err := r.Resolve(context.Background(), false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if rt.Path != embedded || rt.Source != models.SourceEmbedded {
		t.Errorf("expected embedded runtime, got %+v", rt)
	}
	if rt.Version != "3.11.4" {
		t.Errorf("expected version 3.11.4, got %s", rt.Version)
	}
}

func TestResolveSkipsTooOldCandidates(t *testing.T) {
	root := t.TempDir()
	runner := versionRunner(map[string]string{
		"/usr/bin/python3":    "3.10.12",
		"/usr/bin/python3.12": "3.12.3",
	})
	r := newTestResolver(root, runner, nil, map[string]string{
		"python3":    "/usr/bin/python3",
		"python3.12": "/usr/bin/python3.12",
	})

	rt, err := r.Resolve(context.Background(), false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if rt.Path != "/usr/bin/python3.12" || rt.Source != models.SourceVersioned {
		t.Errorf("expected python3.12, got %+v", rt)
	}
}

func TestCandidatesDeduplicated(t *testing.T) {
	r := newTestResolver(t.TempDir(), &fakeRunner{}, nil, map[string]string{
		"python3":    "/usr/bin/python3",
		"python":     "/usr/bin/python3",
		"python3.11": "/usr/bin/python3",
	})
	list := r.Candidates()
	if len(list) != 1 {
		t.Fatalf("expected one candidate after dedupe, got %+v", list)
	}
}

func TestResolveWithoutInstallFails(t *testing.T) {
	prov := &fakeProvisioner{}
	r := newTestResolver(t.TempDir(), versionRunner(nil), prov, nil)

	_, err := r.Resolve(context.Background(), false)
	if !errors.Is(err, ErrNoRuntime) {
		t.Fatalf("expected ErrNoRuntime, got %v", err)
	}
	if prov.calls != 0 {
		t.Error("provisioner must not run when install is not allowed")
	}
}

func TestResolveProvisionsAndReprobesOnce(t *testing.T) {
	root := t.TempDir()
	embedded := filepath.Join(root, "runtime", "bin", "python3")
	runner := versionRunner(map[string]string{embedded: "3.11.7"})
	prov := &fakeProvisioner{fn: func() error {
		writeTestFile(t, embedded, "")
		return nil
	}}
	r := newTestResolver(root, runner, prov, nil)

	rt, err := r.Resolve(context.Background(), true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if prov.calls != 1 {
		t.Errorf("expected one provisioning attempt, got %d", prov.calls)
	}
	if rt.Path != embedded || rt.Source != models.SourceEmbedded {
		t.Errorf("unexpected runtime after provisioning: %+v", rt)
	}
}

func TestResolveProvisioningStillInsufficient(t *testing.T) {
	prov := &fakeProvisioner{}
	r := newTestResolver(t.TempDir(), versionRunner(nil), prov, nil)

	_, err := r.Resolve(context.Background(), true)
	if !errors.Is(err, ErrNoRuntime) {
		t.Fatalf("expected ErrNoRuntime, got %v", err)
	}
	if prov.calls != 1 {
		t.Errorf("expected exactly one provisioning attempt, got %d", prov.calls)
	}

	prov = &fakeProvisioner{fn: func() error { return errors.New("download failed") }}
	r = newTestResolver(t.TempDir(), versionRunner(nil), prov, nil)
	if _, err := r.Resolve(context.Background(), true); !errors.Is(err, ErrNoRuntime) {
		t.Fatalf("expected ErrNoRuntime on provisioning failure, got %v", err)
	}
}

func TestWindowsLauncherAndStoreStub(t *testing.T) {
	r := newTestResolver(t.TempDir(), &fakeRunner{}, nil, map[string]string{
		"python": `C:\Users\u\AppData\Local\Microsoft\WindowsApps\python.exe`,
		"py":     `C:\Windows\py.exe`,
	})
	r.goos = "windows"
	list := r.Candidates()
	if len(list) != 1 {
		t.Fatalf("expected only the py launcher, got %+v", list)
	}
	if list[0].Source != models.SourceLauncher || len(list[0].Args) != 1 || list[0].Args[0] != "-3" {
		t.Errorf("unexpected launcher candidate: %+v", list[0])
	}
}

func TestVersionedRuntimeNames(t *testing.T) {
	names := versionedRuntimeNames("3.12")
	if len(names) != 11 || names[0] != "python3.22" || names[len(names)-1] != "python3.12" {
		t.Errorf("unexpected names: %v", names)
	}
	if names := versionedRuntimeNames("3.20"); names[0] != "python3.30" {
		t.Errorf("upper bound should follow the minimum, got %v", names)
	}
	if names := versionedRuntimeNames("2.7"); names != nil {
		t.Errorf("only python3 names are probed, got %v", names)
	}
}
