package services

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fcc-bootstrap/internal/logger"
	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/utils"
)

var (
	ErrCertToolMissing     = errors.New("certificate authority tool not found")
	ErrAuthorityIncomplete = errors.New("root authority is incomplete")
)

const (
	rootCertName   = "rootCA.pem"
	rootKeyName    = "rootCA-key.pem"
	serverCertName = "server.crt"
	serverKeyName  = "server.key"
)

/**
 * CertManager keeps one local root authority and a loopback server certificate
 * @property {string} certDir - <dataDir>/certs; the authority lives in certDir/ca
 * @property {string} tool - Authority generation tool name (mkcert)
 * @property {[]string} toolDirs - Bundled tool directories searched before PATH
 * @property {[]string} hosts - Names covered by the server certificate
 * @property {int} warnDays - Expiry horizon reported by HealthCheck
 */
type CertManager struct {
	certDir  string
	tool     string
	toolDirs []string
	hosts    []string
	warnDays int
	endpoint string
	runner   utils.Runner
	now      func() time.Time
	look     func(name string, dirs ...string) string
}

func NewCertManager(certDir, tool string, toolDirs, hosts []string, warnDays int, runner utils.Runner) *CertManager {
	return &CertManager{
		certDir:  certDir,
		tool:     tool,
		toolDirs: toolDirs,
		hosts:    hosts,
		warnDays: warnDays,
		runner:   runner,
		now:      time.Now,
		look:     utils.LookPath,
	}
}

// SetEndpoint 设置 HealthCheck 时进行 TLS 握手的地址(host:port)，空则跳过
func (cm *CertManager) SetEndpoint(addr string) {
	cm.endpoint = addr
}

func (cm *CertManager) CARoot() string {
	return filepath.Join(cm.certDir, "ca")
}

func (cm *CertManager) Paths() models.AuthorityPaths {
	return models.AuthorityPaths{
		RootCert:   filepath.Join(cm.CARoot(), rootCertName),
		RootKey:    filepath.Join(cm.CARoot(), rootKeyName),
		ServerCert: filepath.Join(cm.certDir, serverCertName),
		ServerKey:  filepath.Join(cm.certDir, serverKeyName),
	}
}

/**
 * Ensure the root authority and server certificate exist
 * @returns {models.AuthorityPaths} Canonical paths
 * @returns {error} ErrCertToolMissing, ErrAuthorityIncomplete or a generation failure
 * @description
 * - Everything present: no tool invocation and no writes
 * - Authority present, server pair missing: only the server pair is generated
 * - Authority absent: authority and server pair are generated; a stale server pair is discarded
 * - The authority is never rotated or regenerated while present
 */
func (cm *CertManager) EnsureAuthority(ctx context.Context) (models.AuthorityPaths, error) {
	paths := cm.Paths()
	rootCert := utils.FileExists(paths.RootCert)
	rootKey := utils.FileExists(paths.RootKey)
	serverOK := utils.FileExists(paths.ServerCert) && utils.FileExists(paths.ServerKey)

	if rootCert != rootKey {
		return paths, fmt.Errorf("%w: %s", ErrAuthorityIncomplete, cm.CARoot())
	}
	if rootCert && serverOK {
		logger.Debugf("Local authority and server certificate present under %s", cm.certDir)
		return paths, nil
	}

	tool := cm.look(cm.tool, cm.toolDirs...)
	if tool == "" {
		return paths, fmt.Errorf("%w: %s", ErrCertToolMissing, cm.tool)
	}
	if err := os.MkdirAll(cm.CARoot(), 0700); err != nil {
		return paths, fmt.Errorf("create CA dir: %w", err)
	}
	if !rootCert {
		// 旧服务器证书由已不存在的根签发
		os.Remove(paths.ServerCert)
		os.Remove(paths.ServerKey)
		logger.Infof("Generating local root authority in %s", cm.CARoot())
	} else {
		logger.Infof("Generating server certificate for %s", strings.Join(cm.hosts, ", "))
	}

	args := append([]string{"-cert-file", paths.ServerCert, "-key-file", paths.ServerKey}, cm.hosts...)
	out, err := cm.runner.Run(ctx, utils.Command{
		Name: tool,
		Args: args,
		Dir:  cm.certDir,
		Env:  []string{"CAROOT=" + cm.CARoot()},
	})
	if err != nil {
		return paths, fmt.Errorf("generate certificates: %w", err)
	}
	logger.Debugf("%s output: %s", cm.tool, out)

	for _, p := range []string{paths.RootCert, paths.RootKey, paths.ServerCert, paths.ServerKey} {
		if !utils.FileExists(p) {
			return paths, fmt.Errorf("generate certificates: %s was not created", p)
		}
	}
	return paths, nil
}

/**
 * Non-blocking certificate self-check
 * @returns {models.CertHealthReport} Findings; never an error
 */
func (cm *CertManager) HealthCheck(ctx context.Context) models.CertHealthReport {
	paths := cm.Paths()
	now := cm.now()
	report := models.CertHealthReport{CheckedAt: now}

	var root, server *x509.Certificate
	report.Root, root = cm.inspect(paths.RootCert, now)
	report.Server, server = cm.inspect(paths.ServerCert, now)

	for _, st := range []struct {
		label string
		s     models.CertFileStatus
	}{{"root authority", report.Root}, {"server certificate", report.Server}} {
		switch {
		case !st.s.Exists:
			report.Problems = append(report.Problems, fmt.Sprintf("%s missing at %s", st.label, st.s.Path))
		case st.s.ParseFail != "":
			report.Problems = append(report.Problems, fmt.Sprintf("%s unreadable: %s", st.label, st.s.ParseFail))
		case st.s.DaysLeft < 0:
			report.Problems = append(report.Problems, fmt.Sprintf("%s expired on %s", st.label, st.s.NotAfter.Format("2006-01-02")))
		case st.s.DaysLeft < cm.warnDays:
			report.Problems = append(report.Problems, fmt.Sprintf("%s expires in %d days", st.label, st.s.DaysLeft))
		}
	}

	if _, err := tls.LoadX509KeyPair(paths.ServerCert, paths.ServerKey); err == nil {
		report.KeyPairOK = true
	} else if report.Server.Exists {
		report.Problems = append(report.Problems, fmt.Sprintf("server key pair invalid: %v", err))
	}

	if root != nil && server != nil {
		if err := server.CheckSignatureFrom(root); err == nil {
			report.SignedByCA = true
		} else {
			report.Problems = append(report.Problems, "server certificate is not signed by the local authority")
		}
	}
	if server != nil {
		report.CoversHosts = coversHosts(server, cm.hosts)
		if !report.CoversHosts {
			report.Problems = append(report.Problems, fmt.Sprintf("server certificate does not cover %s", strings.Join(cm.hosts, ", ")))
		}
	}

	if cm.endpoint != "" && root != nil {
		report.Endpoint = cm.endpoint
		if err := dialTLS(ctx, cm.endpoint, root); err == nil {
			report.EndpointOK = true
		} else {
			report.Problems = append(report.Problems, fmt.Sprintf("TLS handshake with %s failed: %v", cm.endpoint, err))
		}
	}

	report.Healthy = len(report.Problems) == 0
	return report
}

func (cm *CertManager) inspect(path string, now time.Time) (models.CertFileStatus, *x509.Certificate) {
	st := models.CertFileStatus{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return st, nil
	}
	st.Exists = true
	cert, err := parseCertPEM(data)
	if err != nil {
		st.ParseFail = err.Error()
		return st, nil
	}
	st.Subject = cert.Subject.String()
	st.Issuer = cert.Issuer.String()
	st.NotAfter = cert.NotAfter
	st.DaysLeft = int(cert.NotAfter.Sub(now).Hours() / 24)
	if cert.NotAfter.Before(now) {
		st.DaysLeft = -1
	}
	st.DNSNames = cert.DNSNames
	for _, ip := range cert.IPAddresses {
		st.DNSNames = append(st.DNSNames, ip.String())
	}
	return st, cert
}

func parseCertPEM(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("no PEM certificate block")
	}
	return x509.ParseCertificate(block.Bytes)
}

func coversHosts(cert *x509.Certificate, hosts []string) bool {
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			found := false
			for _, cip := range cert.IPAddresses {
				if cip.Equal(ip) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		if err := cert.VerifyHostname(h); err != nil {
			return false
		}
	}
	return true
}

func dialTLS(ctx context.Context, addr string, root *x509.Certificate) error {
	pool := x509.NewCertPool()
	pool.AddCert(root)
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: 3 * time.Second},
		Config:    &tls.Config{RootCAs: pool, ServerName: "localhost", MinVersion: tls.VersionTLS12},
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// LoadRootPool 读取本地根证书构造证书池
func LoadRootPool(rootCertPath string) (*x509.CertPool, error) {
	data, err := os.ReadFile(rootCertPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificate in %s", rootCertPath)
	}
	return pool, nil
}

/**
 * Manual import instructions as markdown
 * @param {string} copyPath - User-visible copy of the root authority
 */
func (cm *CertManager) Instructions(copyPath string) string {
	if copyPath == "" {
		copyPath = cm.Paths().RootCert
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Trust the FCC local certificate\n\n")
	fmt.Fprintf(&b, "The local root authority is at `%s`.\n\n", copyPath)
	b.WriteString("## Windows\n\n")
	fmt.Fprintf(&b, "```\ncertutil -user -addstore Root \"%s\"\n```\n\n", copyPath)
	b.WriteString("Or double-click the file, choose *Install Certificate*, and place it in *Trusted Root Certification Authorities*.\n\n")
	b.WriteString("## macOS\n\n")
	fmt.Fprintf(&b, "```\nsudo security add-trusted-cert -d -r trustRoot -k /Library/Keychains/System.keychain \"%s\"\n```\n\n", copyPath)
	b.WriteString("## Linux\n\n")
	fmt.Fprintf(&b, "```\nsudo cp \"%s\" /usr/local/share/ca-certificates/fcc-local-root-ca.crt\nsudo update-ca-certificates\n```\n\n", copyPath)
	b.WriteString("Firefox keeps its own store: *Settings > Privacy & Security > Certificates > View Certificates > Authorities > Import*.\n\n")
	b.WriteString("Restart the browser after importing.\n")
	return b.String()
}
