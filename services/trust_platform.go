package services

import (
	"fmt"
	"path/filepath"

	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/utils"
)

const trustNickname = "FCC Local Root CA"

func single(cmds ...utils.Command) func(string) ([]utils.Command, error) {
	return func(string) ([]utils.Command, error) { return cmds, nil }
}

/**
 * Trust mechanisms for an OS
 * @param {string} goos - Target OS
 * @param {string} home - User home directory
 * @param {string} certTool - Authority tool path, used as a macOS fallback
 * @param {string} caRoot - Authority directory passed to the tool
 * @returns {map} Mechanisms per scope, primary first
 */
func PlatformTrustPlans(goos, home, certTool, caRoot string) map[models.TrustScope][]TrustMechanism {
	switch goos {
	case "windows":
		return windowsTrustPlans()
	case "darwin":
		return darwinTrustPlans(home, certTool, caRoot)
	default:
		return linuxTrustPlans(home)
	}
}

func windowsTrustPlans() map[models.TrustScope][]TrustMechanism {
	ps := func(store string) func(string) ([]utils.Command, error) {
		return func(ca string) ([]utils.Command, error) {
			script := fmt.Sprintf("Import-Certificate -FilePath '%s' -CertStoreLocation '%s' | Out-Null", psQuote(ca), store)
			return []utils.Command{{Name: "powershell", Args: []string{"-NoProfile", "-NonInteractive", "-Command", script}}}, nil
		}
	}
	return map[models.TrustScope][]TrustMechanism{
		models.ScopeMachine: {
			{Name: "certutil-machine", Build: func(ca string) ([]utils.Command, error) {
				return []utils.Command{{Name: "certutil", Args: []string{"-f", "-addstore", "Root", ca}}}, nil
			}},
			{Name: "powershell-machine", Build: ps(`Cert:\LocalMachine\Root`)},
		},
		models.ScopeUser: {
			{Name: "certutil-user", Build: func(ca string) ([]utils.Command, error) {
				return []utils.Command{{Name: "certutil", Args: []string{"-user", "-f", "-addstore", "Root", ca}}}, nil
			}},
			{Name: "powershell-user", Build: ps(`Cert:\CurrentUser\Root`)},
		},
	}
}

func darwinTrustPlans(home, certTool, caRoot string) map[models.TrustScope][]TrustMechanism {
	login := filepath.Join(home, "Library", "Keychains", "login.keychain-db")
	machine := []TrustMechanism{
		{Name: "security-system-keychain", Build: func(ca string) ([]utils.Command, error) {
			return []utils.Command{{Name: "security", Args: []string{"add-trusted-cert", "-d", "-r", "trustRoot", "-k", "/Library/Keychains/System.keychain", ca}}}, nil
		}},
	}
	if certTool != "" {
		machine = append(machine, TrustMechanism{Name: "mkcert-install", Build: single(
			utils.Command{Name: certTool, Args: []string{"-install"}, Env: []string{"CAROOT=" + caRoot, "TRUST_STORES=system"}},
		)})
	}
	return map[models.TrustScope][]TrustMechanism{
		models.ScopeMachine: machine,
		models.ScopeUser: {
			{Name: "security-login-keychain", Build: func(ca string) ([]utils.Command, error) {
				return []utils.Command{{Name: "security", Args: []string{"add-trusted-cert", "-r", "trustRoot", "-k", login, ca}}}, nil
			}},
			{Name: "security-import", Build: func(ca string) ([]utils.Command, error) {
				return []utils.Command{{Name: "security", Args: []string{"import", ca, "-k", login, "-t", "cert"}}}, nil
			}},
		},
	}
}

func linuxTrustPlans(home string) map[models.TrustScope][]TrustMechanism {
	nssdb := filepath.Join(home, ".pki", "nssdb")
	return map[models.TrustScope][]TrustMechanism{
		models.ScopeMachine: {
			{Name: "update-ca-certificates", Build: func(ca string) ([]utils.Command, error) {
				dst := "/usr/local/share/ca-certificates/fcc-local-root-ca.crt"
				return []utils.Command{
					{Name: "cp", Args: []string{ca, dst}},
					{Name: "update-ca-certificates"},
				}, nil
			}},
			{Name: "update-ca-trust", Build: func(ca string) ([]utils.Command, error) {
				dst := "/etc/pki/ca-trust/source/anchors/fcc-local-root-ca.crt"
				return []utils.Command{
					{Name: "cp", Args: []string{ca, dst}},
					{Name: "update-ca-trust", Args: []string{"extract"}},
				}, nil
			}},
		},
		models.ScopeUser: {
			{Name: "nss-shared-db", Build: func(ca string) ([]utils.Command, error) {
				return []utils.Command{
					{Name: "mkdir", Args: []string{"-p", nssdb}},
					{Name: "certutil", Args: []string{"-d", "sql:" + nssdb, "-A", "-t", "C,,", "-n", trustNickname, "-i", ca}},
				}, nil
			}},
			{Name: "nss-firefox-profiles", Build: func(ca string) ([]utils.Command, error) {
				profiles, _ := filepath.Glob(filepath.Join(home, ".mozilla", "firefox", "*.default*"))
				snap, _ := filepath.Glob(filepath.Join(home, "snap", "firefox", "common", ".mozilla", "firefox", "*.default*"))
				profiles = append(profiles, snap...)
				if len(profiles) == 0 {
					return nil, fmt.Errorf("no Firefox profile found")
				}
				cmds := make([]utils.Command, 0, len(profiles))
				for _, p := range profiles {
					cmds = append(cmds, utils.Command{Name: "certutil", Args: []string{"-d", "sql:" + p, "-A", "-t", "C,,", "-n", trustNickname, "-i", ca}})
				}
				return cmds, nil
			}},
		},
	}
}
