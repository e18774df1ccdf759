package cert

import (
	"fcc-bootstrap/cmd/root"
	"fcc-bootstrap/internal/config"
	"fcc-bootstrap/internal/env"
	"fcc-bootstrap/internal/utils"
	"fcc-bootstrap/services"

	"github.com/spf13/cobra"
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Local root authority operations (ensure/check/instructions)",
	Long:  `Local root authority operations (ensure/check/instructions)`,
}

const certExample = `  fcc-bootstrap cert ensure
  fcc-bootstrap cert check --yaml
  fcc-bootstrap cert instructions`

func newCertManager() (*config.AppConfig, *env.BootstrapContext, *services.CertManager) {
	cfg := &config.Config
	boot := env.NewBootstrapContext(cfg.InstallRoot, cfg.DataDir, env.GetDesktopDir(), cfg.Shortcut.Name)
	return cfg, boot, services.NewCertManagerFromConfig(cfg, boot.CertDir, utils.ExecRunner{})
}

func init() {
	root.RootCmd.AddCommand(certCmd)
	certCmd.Example = certExample
}
