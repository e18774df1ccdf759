package services

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/utils"
)

// fakeRunner 记录命令并按 fn 返回结果
type fakeRunner struct {
	mu    sync.Mutex
	calls []utils.Command
	fn    func(cmd utils.Command) (string, error)
}

func (f *fakeRunner) Run(ctx context.Context, cmd utils.Command) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return "", nil
	}
	return fn(cmd)
}

func (f *fakeRunner) Calls() []utils.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]utils.Command(nil), f.calls...)
}

func (f *fakeRunner) CallsTo(name string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Name == name {
			n++
		}
	}
	return n
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		t.Fatal(err)
	}
}

func readTestFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

var serialCounter int64 = 1

func nextSerial() *big.Int {
	serialCounter++
	return big.NewInt(serialCounter)
}

func writePEM(t *testing.T, path, blockType string, der []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
}

func writeKey(t *testing.T, path string, key *ecdsa.PrivateKey) {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	writePEM(t, path, "PRIVATE KEY", der)
}

// writeTestAuthority 生成自签名根证书及私钥
func writeTestAuthority(t *testing.T, certPath, keyPath string, notAfter time.Time) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          nextSerial(),
		Subject:               pkix.Name{CommonName: "FCC Test Root"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              notAfter,
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	writePEM(t, certPath, "CERTIFICATE", der)
	writeKey(t, keyPath, key)
}

func loadTestAuthority(t *testing.T, certPath, keyPath string) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	cert, err := parseCertPEM(readTestFile(t, certPath))
	if err != nil {
		t.Fatal(err)
	}
	block, _ := pem.Decode(readTestFile(t, keyPath))
	if block == nil {
		t.Fatal("no key PEM")
	}
	k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	return cert, k.(*ecdsa.PrivateKey)
}

// writeTestServerCert 用根证书签发服务器证书
func writeTestServerCert(t *testing.T, caCert, caKeyPath, certPath, keyPath string, hosts []string, notAfter time.Time) {
	t.Helper()
	ca, caKey := loadTestAuthority(t, caCert, caKeyPath)
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: nextSerial(),
		Subject:      pkix.Name{CommonName: "fcc-test-server"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, ca, &key.PublicKey, caKey)
	if err != nil {
		t.Fatal(err)
	}
	writePEM(t, certPath, "CERTIFICATE", der)
	writeKey(t, keyPath, key)
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

/**
 * Fake mkcert: creates the authority under CAROOT when absent, then signs the server pair
 * @param {time.Duration} caLife - Lifetime of a newly created authority
 */
func fakeMkcert(t *testing.T, caLife time.Duration) func(cmd utils.Command) (string, error) {
	return func(cmd utils.Command) (string, error) {
		caRoot := ""
		for _, e := range cmd.Env {
			if strings.HasPrefix(e, "CAROOT=") {
				caRoot = strings.TrimPrefix(e, "CAROOT=")
			}
		}
		if caRoot == "" {
			return "", errors.New("CAROOT not set")
		}
		rootCert := filepath.Join(caRoot, rootCertName)
		rootKey := filepath.Join(caRoot, rootKeyName)
		if !utils.FileExists(rootCert) {
			writeTestAuthority(t, rootCert, rootKey, time.Now().Add(caLife))
		}
		var hosts []string
		for i := 0; i < len(cmd.Args); i++ {
			if strings.HasPrefix(cmd.Args[i], "-") {
				i++
				continue
			}
			hosts = append(hosts, cmd.Args[i])
		}
		writeTestServerCert(t, rootCert, rootKey,
			argValue(cmd.Args, "-cert-file"), argValue(cmd.Args, "-key-file"),
			hosts, time.Now().Add(caLife))
		return "Created a new certificate", nil
	}
}

type fakeResolver struct {
	calls  []bool
	result models.RuntimeCandidate
	err    error
}

func (f *fakeResolver) Resolve(ctx context.Context, allowInstall bool) (models.RuntimeCandidate, error) {
	f.calls = append(f.calls, allowInstall)
	return f.result, f.err
}

type fakeGate struct {
	called  bool
	runtime models.RuntimeCandidate
	result  models.LicenseResult
	err     error
}

func (f *fakeGate) Verify(ctx context.Context, rt models.RuntimeCandidate, stateless bool) (models.LicenseResult, error) {
	f.called = true
	f.runtime = rt
	return f.result, f.err
}

type fakeGuard struct {
	called bool
	errs   []error
}

func (f *fakeGuard) ClearStaleProcesses(ctx context.Context) (int, []error) {
	f.called = true
	return 0, f.errs
}

type fakeAuthority struct {
	ensureCalls int
	paths       models.AuthorityPaths
	err         error
	health      models.CertHealthReport
}

func (f *fakeAuthority) Paths() models.AuthorityPaths { return f.paths }

func (f *fakeAuthority) EnsureAuthority(ctx context.Context) (models.AuthorityPaths, error) {
	f.ensureCalls++
	return f.paths, f.err
}

func (f *fakeAuthority) HealthCheck(ctx context.Context) models.CertHealthReport {
	return f.health
}

type fakeTrust struct {
	called  bool
	records []models.TrustAnchorRecord
}

func (f *fakeTrust) InstallTrust(ctx context.Context, caPath string) []models.TrustAnchorRecord {
	f.called = true
	return f.records
}

func (f *fakeTrust) CopyPath() string { return "/home/user/Desktop/FCC-Local-Root-CA.crt" }

type fakeShortcuts struct {
	called bool
	last   models.ShortcutDescriptor
	err    error
}

func (f *fakeShortcuts) EnsureShortcut(ctx context.Context, d models.ShortcutDescriptor) (string, error) {
	f.called = true
	f.last = d
	return "/home/user/Desktop/" + d.Name + ".desktop", f.err
}

type fakeLauncher struct {
	started  bool
	spec     LaunchSpec
	startErr error
	probe    models.HealthProbeResult
	waitURL  string
}

func (f *fakeLauncher) Start(ctx context.Context, spec LaunchSpec) (int, error) {
	if f.startErr != nil {
		return 0, f.startErr
	}
	f.started = true
	f.spec = spec
	return 4242, nil
}

func (f *fakeLauncher) Wait(ctx context.Context, healthURL string, maxAttempts int, delay time.Duration) models.HealthProbeResult {
	f.waitURL = healthURL
	p := f.probe
	p.URL = healthURL
	return p
}
