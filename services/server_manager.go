package services

import (
	"context"
	"sync"
	"time"

	"fcc-bootstrap/internal/config"
	"fcc-bootstrap/internal/env"
	"fcc-bootstrap/internal/logger"
	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/utils"
)

// CertChecker 只读的证书诊断接口
type CertChecker interface {
	Paths() models.AuthorityPaths
	HealthCheck(ctx context.Context) models.CertHealthReport
}

/**
 * Server backs the loopback control API
 * @property {*config.AppConfig} cfg - Configuration
 * @property {CertChecker} certs - Certificate diagnostics
 * @property {time.Time} startTime - Used for uptime
 */
type Server struct {
	cfg       *config.AppConfig
	certs     CertChecker
	probe     func() *env.BootstrapContext
	startTime time.Time
	mutex     sync.Mutex
	lastCheck *models.CertHealthReport
}

/**
 * Create new server instance
 * @param {*config.AppConfig} cfg - Application configuration
 * @param {CertChecker} certs - Certificate diagnostics
 * @param {func} probe - Re-probes the install state on every status request
 */
func NewServer(cfg *config.AppConfig, certs CertChecker, probe func() *env.BootstrapContext) *Server {
	return &Server{
		cfg:       cfg,
		certs:     certs,
		probe:     probe,
		startTime: time.Now(),
	}
}

/**
 * Install state as seen right now
 * @returns {models.StatusResponse} Marker, shortcut, resolved mode and the cached runtime
 */
func BuildStatus(cfg *config.AppConfig, boot *env.BootstrapContext) models.StatusResponse {
	st := models.StatusResponse{
		InstallRoot:     boot.InstallRoot,
		DataDir:         boot.DataDir,
		MarkerPresent:   boot.MarkerPresent,
		ShortcutPresent: boot.ShortcutPresent,
		ShortcutPath:    boot.ShortcutPath,
		Mode:            boot.Mode(),
		Elevated:        boot.Elevated,
	}
	if t, err := boot.ReadMarker(); err == nil {
		st.MarkerTime = t.Format(time.RFC3339)
	}
	if cache, err := config.LoadRuntimeCache(cfg.DataDir); err == nil && cache.InstallRoot == boot.InstallRoot {
		rt := cache.Runtime
		st.Runtime = &rt
	}
	return st
}

func (s *Server) Status() models.StatusResponse {
	return BuildStatus(s.cfg, s.probe())
}

/**
 * Run the certificate health check now
 * @returns {models.CertHealthReport} Findings; also kept as the latest result
 */
func (s *Server) Check(ctx context.Context) models.CertHealthReport {
	start := time.Now()
	report := s.certs.HealthCheck(ctx)
	outcome := OutcomeOK
	if !report.Healthy {
		outcome = OutcomeWarning
		for range report.Problems {
			CountWarning(models.WarnCertificateHealth)
		}
	}
	ObserveStep(StepCertHealth, outcome, time.Since(start))

	s.mutex.Lock()
	s.lastCheck = &report
	s.mutex.Unlock()
	return report
}

// LastCheck 最近一次证书检查结果，未检查过返回 nil
func (s *Server) LastCheck() *models.CertHealthReport {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.lastCheck
}

// CACertPath 本地根证书路径，不存在时返回空
func (s *Server) CACertPath() string {
	p := s.certs.Paths().RootCert
	if !utils.FileExists(p) {
		return ""
	}
	return p
}

/**
 * Get health check response for the server
 * @returns {models.HealthResponse} Version, start time and uptime
 */
func (s *Server) GetHealthz() models.HealthResponse {
	return models.HealthResponse{
		Version:   s.cfg.AppVersion,
		StartTime: s.startTime.Format(time.RFC3339),
		Status:    "UP",
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	}
}

/**
 * Start periodic metrics reporting
 * @description
 * - Disabled when no Pushgateway is configured or the interval is not positive
 * - Returns when ctx is cancelled
 */
func (s *Server) StartReportMetrics(ctx context.Context) {
	interval := s.cfg.Metrics.Interval
	if s.cfg.Metrics.Pushgateway == "" || interval <= 0 {
		logger.Info("Metrics reporting is disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := PushMetrics(ctx, s.cfg.Metrics.Pushgateway, s.cfg.Metrics.Job, ""); err != nil {
				logger.Errorf("Metrics reporting error: %v", err)
			}
		}
	}
}
