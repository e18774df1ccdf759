package trust

import (
	"fmt"
	"os"

	"fcc-bootstrap/cmd/root"
	"fcc-bootstrap/internal/config"
	"fcc-bootstrap/internal/env"
	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/utils"
	"fcc-bootstrap/services"

	"github.com/spf13/cobra"
)

var (
	scope     string
	caPath    string
	noElevate bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the local root authority into trust stores",
	Long: `Install the local root authority into the machine and/or current-user trust stores.
With --no-elevate the requested scopes are installed in this process only; this is
how the elevated child started for the machine scope is invoked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scopes, err := parseScope(scope)
		if err != nil {
			return err
		}
		cfg := &config.Config
		boot := env.NewBootstrapContext(cfg.InstallRoot, cfg.DataDir, env.GetDesktopDir(), cfg.Shortcut.Name)
		boot.Elevated = utils.IsElevated()
		self, _ := os.Executable()
		runner := utils.ExecRunner{}
		certs := services.NewCertManagerFromConfig(cfg, boot.CertDir, runner)
		ts := services.NewTrustStoreFromConfig(cfg, boot, certs, self, boot.Elevated, runner)

		ca := caPath
		if ca == "" {
			ca = certs.Paths().RootCert
		}
		if !utils.FileExists(ca) {
			root.SetExitCode(models.ExitCollaborator)
			return fmt.Errorf("root authority not found: %s (run 'fcc-bootstrap cert ensure' first)", ca)
		}

		var records []models.TrustAnchorRecord
		if len(scopes) == len(models.AllScopes) && !noElevate {
			records = ts.InstallTrust(cmd.Context(), ca)
		} else {
			for _, s := range scopes {
				records = append(records, ts.InstallScope(cmd.Context(), s, ca))
			}
		}

		failed := 0
		for _, rec := range records {
			if rec.Installed {
				fmt.Printf("%-8s installed via %s\n", rec.Scope, rec.Method)
			} else {
				failed++
				fmt.Printf("%-8s FAILED: %s\n", rec.Scope, rec.Error)
			}
		}
		if failed > 0 {
			root.SetExitCode(1)
		}
		return nil
	},
}

// parseScope machine|user|all
func parseScope(s string) ([]models.TrustScope, error) {
	switch s {
	case "", "all":
		return models.AllScopes, nil
	case string(models.ScopeMachine):
		return []models.TrustScope{models.ScopeMachine}, nil
	case string(models.ScopeUser):
		return []models.TrustScope{models.ScopeUser}, nil
	}
	return nil, fmt.Errorf("invalid scope '%s', expected machine, user or all", s)
}

func init() {
	trustCmd.AddCommand(installCmd)
	installCmd.Flags().SortFlags = false
	installCmd.Flags().StringVar(&scope, "scope", "all", "Trust scope: machine, user or all")
	installCmd.Flags().StringVar(&caPath, "ca", "", "Root authority certificate (default: the generated one)")
	installCmd.Flags().BoolVar(&noElevate, "no-elevate", false, "Install in this process without requesting elevation")
}
