package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"fcc-bootstrap/internal/logger"
	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/proc"
	"fcc-bootstrap/internal/utils"
)

var ErrEntryMissing = errors.New("application entry script not found")

/**
 * LaunchSpec describes how the application is started
 * @property {models.RuntimeCandidate} runtime - Interpreter
 * @property {string} entry - Entry script, absolute
 * @property {string} workDir - Working directory
 * @property {[]string} env - Extra KEY=VALUE pairs
 * @property {string} logPath - Application stdout/stderr
 */
type LaunchSpec struct {
	Runtime models.RuntimeCandidate
	Entry   string
	WorkDir string
	Env     []string
	LogPath string
}

/**
 * Prober polls a health endpoint a bounded number of times
 * @property {*http.Client} client - Trusts the local root authority
 * @property {func} sleep - Wait between attempts; replaced in tests
 */
type Prober struct {
	client *http.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewProber(client *http.Client) *Prober {
	return &Prober{client: client, sleep: sleepContext}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

/**
 * Poll url until it answers below 500 or attempts run out
 * @param {string} url - Health endpoint
 * @param {int} maxAttempts - Upper bound on requests
 * @param {time.Duration} delay - Pause between attempts (not after the last)
 * @returns {models.HealthProbeResult} Ready and the number of attempts made
 */
func (p *Prober) Probe(ctx context.Context, url string, maxAttempts int, delay time.Duration) models.HealthProbeResult {
	return p.ProbeProcess(ctx, url, maxAttempts, delay, nil)
}

/**
 * Poll url while the launched process is alive
 * @param {appProcess} app - Launched application; nil polls without watching
 * @returns {models.HealthProbeResult} Exited=true with the exit code when the process died before answering
 */
func (p *Prober) ProbeProcess(ctx context.Context, url string, maxAttempts int, delay time.Duration, app appProcess) models.HealthProbeResult {
	result := models.HealthProbeResult{URL: url}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt
		status, err := p.once(ctx, url)
		if err == nil && status < http.StatusInternalServerError {
			result.Ready = true
			result.StatusCode = status
			result.LastError = ""
			logger.Infof("Application ready at %s after %d attempt(s)", url, attempt)
			return result
		}
		if err != nil {
			result.LastError = err.Error()
		} else {
			result.StatusCode = status
			result.LastError = fmt.Sprintf("status %d", status)
		}
		logger.Debugf("Health probe %d/%d for %s: %s", attempt, maxAttempts, url, result.LastError)
		if app != nil && !app.IsRunning() {
			result.Exited = true
			result.ExitCode = app.ExitCode()
			result.LastError = fmt.Sprintf("application exited with code %d", result.ExitCode)
			logger.Errorf("Application exited early (PID: %d, code %d)", app.Pid(), result.ExitCode)
			return result
		}
		if attempt < maxAttempts {
			if err := p.sleep(ctx, delay); err != nil {
				result.LastError = err.Error()
				return result
			}
		}
	}
	return result
}

func (p *Prober) once(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	rsp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	rsp.Body.Close()
	return rsp.StatusCode, nil
}

/**
 * Health client for the loopback endpoint
 * @param {string} rootCertPath - Local root authority; when unreadable verification is skipped
 * @param {time.Duration} timeout - Per-request timeout
 */
func NewHealthClient(rootCertPath string, timeout time.Duration) *http.Client {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if pool, err := LoadRootPool(rootCertPath); err == nil {
		tlsCfg.RootCAs = pool
	} else {
		// 仅用于回环地址
		logger.Warnf("Local root authority unavailable (%v), health probe skips verification", err)
		tlsCfg.InsecureSkipVerify = true
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &http.Transport{TLSClientConfig: tlsCfg},
	}
}

// appProcess 已启动的应用进程
type appProcess interface {
	Pid() int
	IsRunning() bool
	ExitCode() int
}

/**
 * Launcher starts the application detached and waits for readiness
 * @property {appProcess} app - Process from the last Start, watched while polling
 */
type Launcher struct {
	prober    *Prober
	newProber func() *Prober
	start     func(spec LaunchSpec) (appProcess, error)
	app       appProcess
}

func NewLauncher(prober *Prober) *Launcher {
	return &Launcher{prober: prober, start: startDetached}
}

// NewAuthorityLauncher 健康检查客户端在首次轮询时创建，此时根证书已生成
func NewAuthorityLauncher(rootCertPath string, timeout time.Duration) *Launcher {
	return &Launcher{
		newProber: func() *Prober { return NewProber(NewHealthClient(rootCertPath, timeout)) },
		start:     startDetached,
	}
}

func startDetached(spec LaunchSpec) (appProcess, error) {
	name, args := spec.Runtime.Command(spec.Entry)
	pi := proc.NewProcessInstance(filepath.Base(spec.Entry), name, args)
	pi.WorkDir = spec.WorkDir
	pi.Env = spec.Env
	pi.LogPath = spec.LogPath
	if err := pi.StartDetached(); err != nil {
		return nil, err
	}
	return pi, nil
}

/**
 * Start the application in the background
 * @returns {int} Pid
 * @returns {error} ErrEntryMissing when the entry script is absent, or a start failure
 */
func (l *Launcher) Start(ctx context.Context, spec LaunchSpec) (int, error) {
	if !utils.FileExists(spec.Entry) {
		return 0, fmt.Errorf("%w: %s", ErrEntryMissing, spec.Entry)
	}
	app, err := l.start(spec)
	if err != nil {
		return 0, err
	}
	l.app = app
	return app.Pid(), nil
}

// Wait 轮询健康检查地址，进程提前退出时立即返回
func (l *Launcher) Wait(ctx context.Context, healthURL string, maxAttempts int, delay time.Duration) models.HealthProbeResult {
	if l.prober == nil {
		l.prober = l.newProber()
	}
	result := l.prober.ProbeProcess(ctx, healthURL, maxAttempts, delay, l.app)
	if l.app != nil {
		result.Pid = l.app.Pid()
	}
	return result
}

/**
 * Start then poll
 * @returns {models.HealthProbeResult} Ready=false on exhaustion or early exit; not an error
 */
func (l *Launcher) LaunchAndWait(ctx context.Context, spec LaunchSpec, healthURL string, maxAttempts int, delay time.Duration) (models.HealthProbeResult, error) {
	if _, err := l.Start(ctx, spec); err != nil {
		return models.HealthProbeResult{URL: healthURL}, err
	}
	return l.Wait(ctx, healthURL, maxAttempts, delay), nil
}
