package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"fcc-bootstrap/internal/config"
	"fcc-bootstrap/internal/logger"
	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/utils"

	"github.com/golang-jwt/jwt/v5"
)

var ErrLicenseScriptMissing = errors.New("license verification script not found")

var licenseReasons = map[string]string{
	"invalid_license":             "The license key is not valid.",
	"license_revoked":             "This license has been revoked.",
	"license_expired":             "This license has expired.",
	"email_mismatch":              "The email does not match the license owner.",
	"activation_limit_reached":    "The license has reached its activation limit.",
	"network_error":               "Could not reach the license server.",
	"invalid_server_response":     "The license server returned an unexpected response.",
	"missing_license_key":         "No license key was provided (set FCC_LICENSE_KEY or license.key).",
	"missing_machine_fingerprint": "Could not compute a machine fingerprint.",
}

// 脚本输出匹配顺序
var licenseCodes = []string{
	"missing_machine_fingerprint",
	"missing_license_key",
	"activation_limit_reached",
	"invalid_server_response",
	"license_revoked",
	"license_expired",
	"email_mismatch",
	"network_error",
	"invalid_license",
}

// HumanizeLicenseError 将许可证错误码转换为可读说明
func HumanizeLicenseError(code string) string {
	if reason, ok := licenseReasons[code]; ok {
		return reason
	}
	if code == "" {
		return "License verification failed."
	}
	return "License verification failed: " + code
}

/**
 * LicenseGate consults the external license collaborator before any provisioning mutation
 * @property {config.LicenseConfig} cfg - Mode, server, key
 * @property {string} root - Install root holding the verification script
 * @property {string} dataDir - Holds license.key and the activation record
 */
type LicenseGate struct {
	cfg        config.LicenseConfig
	root       string
	dataDir    string
	appVersion string
	client     *http.Client
	runner     utils.Runner
}

func NewLicenseGate(cfg config.LicenseConfig, root, dataDir, appVersion string, client *http.Client, runner utils.Runner) *LicenseGate {
	return &LicenseGate{cfg: cfg, root: root, dataDir: dataDir, appVersion: appVersion, client: client, runner: runner}
}

/**
 * Verify the license
 * @param {models.RuntimeCandidate} rt - Interpreter used by script mode
 * @param {bool} stateless - Do not persist the activation record
 * @returns {models.LicenseResult} Passed=false with a reason when the license is rejected
 * @returns {error} The collaborator itself is unavailable (script missing)
 */
func (lg *LicenseGate) Verify(ctx context.Context, rt models.RuntimeCandidate, stateless bool) (models.LicenseResult, error) {
	switch strings.ToLower(lg.cfg.Mode) {
	case "off", "none", "disabled":
		return models.LicenseResult{Passed: true, Code: "disabled"}, nil
	case "http":
		return lg.verifyHTTP(ctx, stateless)
	default:
		return lg.verifyScript(ctx, rt, stateless)
	}
}

// LicenseUsesScript 该模式是否需要解释器运行验证脚本
func LicenseUsesScript(mode string) bool {
	switch strings.ToLower(mode) {
	case "http", "off", "none", "disabled":
		return false
	}
	return true
}

func (lg *LicenseGate) licenseKey() string {
	if lg.cfg.Key != "" {
		return strings.TrimSpace(lg.cfg.Key)
	}
	data, err := os.ReadFile(filepath.Join(lg.dataDir, "license.key"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (lg *LicenseGate) verifyHTTP(ctx context.Context, stateless bool) (models.LicenseResult, error) {
	fail := func(code string) (models.LicenseResult, error) {
		return models.LicenseResult{Passed: false, Code: code, Reason: HumanizeLicenseError(code)}, nil
	}
	key := lg.licenseKey()
	if key == "" {
		return fail("missing_license_key")
	}
	fingerprint := MachineFingerprint()
	if fingerprint == "" {
		return fail("missing_machine_fingerprint")
	}
	hostname, _ := os.Hostname()
	body, _ := json.Marshal(models.LicenseVerifyRequest{
		LicenseKey:         key,
		MachineFingerprint: fingerprint,
		Email:              lg.cfg.Email,
		Hostname:           hostname,
		Platform:           runtime.GOOS + "/" + runtime.GOARCH,
		AppVersion:         lg.appVersion,
	})

	raw, err := lg.post(ctx, body)
	if err != nil {
		return fail("network_error")
	}

	var result models.LicenseVerifyResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		logger.Warnf("License server %s returned non-JSON", lg.cfg.Server)
		return fail("invalid_server_response")
	}
	if !result.Ok {
		code := result.Error
		if code == "" {
			code = "invalid_license"
		}
		return fail(code)
	}

	res := models.LicenseResult{Passed: true, Code: "ok", ActivationToken: result.ActivationToken}
	if result.License != nil {
		res.ActivationCount = result.License.ActivationCount
		res.MaxActivations = result.License.MaxActivations
	}
	if !stateless {
		if err := lg.saveActivation(raw); err != nil {
			logger.Warnf("Persist license activation failed: %v", err)
		}
	}
	return res, nil
}

/**
 * Post the verify request to each candidate server until one answers
 * @returns {[]byte} Response body of the first server reached
 * @returns {error} Every candidate failed at the transport level
 */
func (lg *LicenseGate) post(ctx context.Context, body []byte) ([]byte, error) {
	var lastErr error
	for _, target := range lg.licenseServers() {
		urlStr := target + "/api/license/verify"
		logger.Debugf("Attempting license verification via %s", target)
		raw, err := lg.postOnce(ctx, urlStr, body)
		if err != nil {
			logger.Warnf("License request to %s failed: %v", urlStr, err)
			lastErr = err
			continue
		}
		if target != strings.TrimRight(lg.cfg.Server, "/") {
			logger.Infof("License server switched to %s", target)
			lg.cfg.Server = target
		}
		return raw, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no license server configured")
	}
	return nil, lastErr
}

func (lg *LicenseGate) postOnce(ctx context.Context, urlStr string, body []byte) ([]byte, error) {
	reqCtx := ctx
	if lg.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, lg.cfg.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, urlStr, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	rsp, err := lg.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer rsp.Body.Close()
	return io.ReadAll(io.LimitReader(rsp.Body, 1<<20))
}

/**
 * Candidate license servers in the order they are tried
 * @description
 * - The configured server, then license.fallback_servers, duplicates removed
 * - A loopback https server is tried over plain http first; a loopback http server also over https
 */
func (lg *LicenseGate) licenseServers() []string {
	var servers []string
	add := func(s string, first bool) {
		s = strings.TrimRight(strings.TrimSpace(s), "/")
		if s == "" {
			return
		}
		for i, v := range servers {
			if v == s {
				if first {
					servers = append(servers[:i], servers[i+1:]...)
					break
				}
				return
			}
		}
		if first {
			servers = append([]string{s}, servers...)
		} else {
			servers = append(servers, s)
		}
	}

	primary := lg.cfg.Server
	add(primary, false)
	if u, err := url.Parse(strings.TrimRight(primary, "/")); err == nil && isLoopbackHost(u.Hostname()) {
		alt := *u
		switch u.Scheme {
		case "https":
			alt.Scheme = "http"
			add(alt.String(), true)
		case "http":
			alt.Scheme = "https"
			add(alt.String(), false)
		}
	}
	for _, s := range lg.cfg.FallbackServers {
		add(s, false)
	}
	return servers
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (lg *LicenseGate) saveActivation(raw []byte) error {
	if err := os.MkdirAll(lg.dataDir, 0700); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(lg.dataDir, "license.json"), raw, 0600)
}

func (lg *LicenseGate) verifyScript(ctx context.Context, rt models.RuntimeCandidate, stateless bool) (models.LicenseResult, error) {
	script := lg.cfg.Script
	if !filepath.IsAbs(script) {
		script = filepath.Join(lg.root, script)
	}
	if !utils.FileExists(script) {
		return models.LicenseResult{}, fmt.Errorf("%w: %s", ErrLicenseScriptMissing, script)
	}
	extra := []string{script, "--verify", "--quiet"}
	if stateless {
		extra = append(extra, "--stateless")
	}
	name, args := rt.Command(extra...)
	var envs []string
	if lg.cfg.Key != "" {
		envs = append(envs, "FCC_LICENSE_KEY="+lg.cfg.Key)
	}
	if lg.cfg.Server != "" {
		envs = append(envs, "LICENSE_SERVER="+lg.cfg.Server)
	}
	out, err := lg.runner.Run(ctx, utils.Command{Name: name, Args: args, Dir: lg.root, Env: envs})
	if err != nil {
		code := scriptErrorCode(out)
		return models.LicenseResult{Passed: false, Code: code, Reason: HumanizeLicenseError(code)}, nil
	}
	return models.LicenseResult{Passed: true, Code: "ok"}, nil
}

/**
 * Read the activation token persisted by the last non-stateless verification
 * @param {string} dataDir - Directory holding license.json
 * @returns {string} Activation token, empty when none was persisted
 */
func LoadActivationToken(dataDir string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, "license.json"))
	if err != nil {
		return "", err
	}
	var rsp models.LicenseVerifyResponse
	if err := json.Unmarshal(raw, &rsp); err != nil {
		return "", fmt.Errorf("unmarshal 'license.json' failed: %w", err)
	}
	return rsp.ActivationToken, nil
}

/**
 * Decode activation token claims for display
 * @param {string} token - JWT issued by the license server
 * @returns {jwt.MapClaims} Claims; the signature is not verified, the server key is not available locally
 */
func ActivationClaims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode activation token: %w", err)
	}
	return claims, nil
}

// scriptErrorCode 从脚本输出中找出已知错误码
func scriptErrorCode(out string) string {
	for _, code := range licenseCodes {
		if strings.Contains(out, code) {
			return code
		}
	}
	return "invalid_license"
}

/**
 * Machine fingerprint sent in http mode
 * @returns {string} sha256 hex of hostname, OS, arch and the first hardware address
 * @description
 * - Differs from the fingerprint license_manager.py computes; script mode is the default so both sides agree
 */
func MachineFingerprint() string {
	hostname, _ := os.Hostname()
	parts := []string{hostname, runtime.GOOS, runtime.GOARCH, firstHardwareAddr()}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func firstHardwareAddr() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		return iface.HardwareAddr.String()
	}
	return ""
}
