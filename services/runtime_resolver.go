package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fcc-bootstrap/internal/logger"
	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/utils"

	"github.com/hashicorp/go-version"
)

var ErrNoRuntime = errors.New("no compliant runtime found")

// 输出 major.minor.micro，避免不同版本 --version 输出格式差异
const versionProbeScript = "import sys; print('%d.%d.%d' % sys.version_info[:3])"

// RuntimeProvisioner 安装运行时(仅 INSTALL 模式调用)
type RuntimeProvisioner interface {
	Install(ctx context.Context) error
}

/**
 * RuntimeResolver finds an interpreter satisfying the minimum version
 * @property {string} root - Install root, searched for embedded interpreters
 * @property {string} minVersion - Minimum "major.minor"
 * @property {utils.Runner} runner - Runs version probes
 * @property {RuntimeProvisioner} provisioner - Installs a runtime when none qualifies
 */
type RuntimeResolver struct {
	root         string
	minVersion   string
	probeTimeout time.Duration
	goos         string
	runner       utils.Runner
	provisioner  RuntimeProvisioner
	lookPath     func(string) (string, error)
	userLocal    func() []models.RuntimeCandidate
}

func NewRuntimeResolver(root, minVersion string, probeTimeout time.Duration, runner utils.Runner, provisioner RuntimeProvisioner) *RuntimeResolver {
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	return &RuntimeResolver{
		root:         root,
		minVersion:   minVersion,
		probeTimeout: probeTimeout,
		goos:         currentOS,
		runner:       runner,
		provisioner:  provisioner,
		lookPath:     exec.LookPath,
		userLocal:    userLocalRuntimes,
	}
}

/**
 * Resolve a compliant runtime
 * @param {context.Context} ctx - Cancels probes and provisioning
 * @param {bool} allowInstall - Provision a runtime when none qualifies (INSTALL only)
 * @returns {models.RuntimeCandidate} First qualifying candidate in priority order
 * @returns {error} ErrNoRuntime when nothing qualifies, even after one provisioning attempt
 * @description
 * - Order: embedded, PATH, version-suffixed names, platform launcher, per-user installs (newest first)
 * - After provisioning the candidates are probed exactly once more
 */
func (r *RuntimeResolver) Resolve(ctx context.Context, allowInstall bool) (models.RuntimeCandidate, error) {
	if rt, ok := r.firstCompliant(ctx); ok {
		return rt, nil
	}
	if !allowInstall || r.provisioner == nil {
		return models.RuntimeCandidate{}, fmt.Errorf("%w (need >= %s)", ErrNoRuntime, r.minVersion)
	}

	logger.Infof("No runtime >= %s found, provisioning one", r.minVersion)
	if err := r.provisioner.Install(ctx); err != nil {
		return models.RuntimeCandidate{}, fmt.Errorf("%w: provisioning failed: %v", ErrNoRuntime, err)
	}
	if rt, ok := r.firstCompliant(ctx); ok {
		if rt.Source != models.SourceEmbedded {
			rt.Source = models.SourceInstalled
		}
		return rt, nil
	}
	return models.RuntimeCandidate{}, fmt.Errorf("%w after provisioning (need >= %s)", ErrNoRuntime, r.minVersion)
}

func (r *RuntimeResolver) firstCompliant(ctx context.Context) (models.RuntimeCandidate, bool) {
	for _, c := range r.Candidates() {
		v, err := r.Probe(ctx, c)
		if err != nil {
			logger.Debugf("Runtime candidate %s (%s) rejected: %v", c.Path, c.Source, err)
			continue
		}
		ok, err := utils.MeetsMinimum(v, r.minVersion)
		if err != nil {
			logger.Errorf("Invalid minimum runtime version: %v", err)
			return models.RuntimeCandidate{}, false
		}
		if !ok {
			logger.Infof("Runtime candidate %s has version %s, below %s", c.Path, v, r.minVersion)
			continue
		}
		c.Version = v.String()
		logger.Infof("Selected runtime %s %s (%s)", c.Path, c.Version, c.Source)
		return c, true
	}
	return models.RuntimeCandidate{}, false
}

/**
 * Probe a candidate's version by running it
 * @param {models.RuntimeCandidate} c - Candidate
 * @returns {*version.Version} Reported version
 */
func (r *RuntimeResolver) Probe(ctx context.Context, c models.RuntimeCandidate) (*version.Version, error) {
	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()
	name, args := c.Command("-c", versionProbeScript)
	out, err := r.runner.Run(probeCtx, utils.Command{Name: name, Args: args})
	if err != nil {
		return nil, err
	}
	return utils.ParseRuntimeVersion(out)
}

/**
 * Candidates in fixed priority order, de-duplicated by path
 * @returns {[]models.RuntimeCandidate} Candidates; existence of embedded and per-user paths is checked
 */
func (r *RuntimeResolver) Candidates() []models.RuntimeCandidate {
	var list []models.RuntimeCandidate
	seen := map[string]bool{}
	add := func(c models.RuntimeCandidate) {
		key := filepath.Clean(c.Path) + "|" + strings.Join(c.Args, " ")
		if r.goos == "windows" {
			key = strings.ToLower(key)
		}
		if seen[key] {
			return
		}
		seen[key] = true
		list = append(list, c)
	}

	for _, p := range embeddedRuntimePaths(r.root, r.goos) {
		if utils.FileExists(p) {
			add(models.RuntimeCandidate{Path: p, Source: models.SourceEmbedded})
		}
	}
	for _, name := range pathRuntimeNames(r.goos) {
		if p := r.look(name); p != "" {
			add(models.RuntimeCandidate{Path: p, Source: models.SourcePath})
		}
	}
	for _, name := range versionedRuntimeNames(r.minVersion) {
		if p := r.look(name); p != "" {
			add(models.RuntimeCandidate{Path: p, Source: models.SourceVersioned})
		}
	}
	if r.goos == "windows" {
		if p := r.look("py"); p != "" {
			add(models.RuntimeCandidate{Path: p, Args: []string{"-3"}, Source: models.SourceLauncher})
		}
	}
	if r.userLocal != nil {
		for _, c := range r.userLocal() {
			if utils.FileExists(c.Path) {
				c.Source = models.SourceUserLocal
				add(c)
			}
		}
	}
	return list
}

func (r *RuntimeResolver) look(name string) string {
	p, err := r.lookPath(name)
	if err != nil {
		return ""
	}
	// Windows 应用商店的 python.exe 占位程序不是真正的解释器
	if r.goos == "windows" && strings.Contains(strings.ToLower(p), `\windowsapps\`) {
		return ""
	}
	return p
}

func embeddedRuntimePaths(root, goos string) []string {
	if goos == "windows" {
		return []string{
			filepath.Join(root, ".venv", "Scripts", "python.exe"),
			filepath.Join(root, "runtime", "python.exe"),
			filepath.Join(root, "python", "python.exe"),
		}
	}
	return []string{
		filepath.Join(root, ".venv", "bin", "python3"),
		filepath.Join(root, ".venv", "bin", "python"),
		filepath.Join(root, "runtime", "bin", "python3"),
		filepath.Join(root, "python", "bin", "python3"),
	}
}

func pathRuntimeNames(goos string) []string {
	if goos == "windows" {
		return []string{"python", "python3"}
	}
	return []string{"python3", "python"}
}

// 版本后缀名向上探测的次版本数
const versionedMinorHeadroom = 10

// versionedRuntimeNames python3.<min+10> ... python3.<min>，新版本优先
func versionedRuntimeNames(minVersion string) []string {
	min, err := version.NewVersion(minVersion)
	if err != nil {
		return nil
	}
	seg := min.Segments()
	if seg[0] != 3 {
		return nil
	}
	var names []string
	for minor := seg[1] + versionedMinorHeadroom; minor >= seg[1]; minor-- {
		names = append(names, fmt.Sprintf("python3.%d", minor))
	}
	return names
}

type versionedPath struct {
	path string
	ver  *version.Version
}

/**
 * Expand a glob of versioned install directories, newest first
 * @param {string} pattern - Glob matching install directories
 * @param {string} exeRel - Interpreter path relative to each directory
 * @param {func(string) string} verOf - Maps a directory base name to a version string, empty to skip
 */
func globNewestFirst(pattern, exeRel string, verOf func(string) string) []models.RuntimeCandidate {
	dirs, _ := filepath.Glob(pattern)
	var found []versionedPath
	for _, dir := range dirs {
		v, err := version.NewVersion(verOf(filepath.Base(dir)))
		if err != nil {
			continue
		}
		found = append(found, versionedPath{path: filepath.Join(dir, exeRel), ver: v})
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].ver.GreaterThan(found[j].ver) })
	out := make([]models.RuntimeCandidate, 0, len(found))
	for _, f := range found {
		out = append(out, models.RuntimeCandidate{Path: f.path, Source: models.SourceUserLocal})
	}
	return out
}

// pythonDirVersion "Python312" -> "3.12"，"Python39-32" -> "3.9"
func pythonDirVersion(base string) string {
	s := strings.TrimPrefix(strings.ToLower(base), "python")
	if i := strings.IndexAny(s, "-_"); i >= 0 {
		s = s[:i]
	}
	if len(s) < 2 || s[0] != '3' {
		return ""
	}
	return "3." + s[1:]
}

func homeDir() string {
	h, _ := os.UserHomeDir()
	return h
}
