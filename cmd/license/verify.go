package license

import (
	"fmt"
	"time"

	"fcc-bootstrap/cmd/root"
	"fcc-bootstrap/internal/config"
	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/utils"
	"fcc-bootstrap/services"

	"github.com/spf13/cobra"
)

var (
	persist bool
	showJWT bool
	asYaml  bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the license without provisioning anything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config
		runner := utils.ExecRunner{}
		var rt models.RuntimeCandidate
		if services.LicenseUsesScript(cfg.License.Mode) {
			resolver := services.NewRuntimeResolver(cfg.InstallRoot, cfg.Runtime.MinVersion, cfg.Runtime.ProbeTimeout, runner, nil)
			var err error
			if rt, err = resolver.Resolve(cmd.Context(), false); err != nil {
				root.SetExitCode(models.ExitRuntime)
				return err
			}
		}
		gate := services.NewLicenseGate(cfg.License, cfg.InstallRoot, cfg.DataDir, cfg.AppVersion,
			utils.NewHTTPClient(cfg.License.Timeout, nil), runner)
		res, err := gate.Verify(cmd.Context(), rt, !persist)
		if err != nil {
			root.SetExitCode(models.ExitCollaborator)
			return err
		}

		if asYaml {
			utils.PrintYaml(res)
		} else if res.Passed {
			fmt.Printf("License OK (%s)\n", res.Code)
			if res.MaxActivations > 0 {
				fmt.Printf("Activations: %d/%d\n", res.ActivationCount, res.MaxActivations)
			}
		} else {
			fmt.Printf("License check failed: %s\n", res.Reason)
		}
		if showJWT {
			printClaims(res.ActivationToken, cfg.DataDir)
		}
		if !res.Passed {
			root.SetExitCode(models.ExitLicense)
		}
		return nil
	},
}

// printClaims 显示激活令牌内容，本次未返回时读取已保存的令牌
func printClaims(token, dataDir string) {
	if token == "" {
		token, _ = services.LoadActivationToken(dataDir)
	}
	if token == "" {
		fmt.Println("No activation token available")
		return
	}
	claims, err := services.ActivationClaims(token)
	if err != nil {
		fmt.Println(err)
		return
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		fmt.Printf("Activation expires: %s\n", exp.Format(time.RFC3339))
	}
	utils.PrintYaml(map[string]interface{}(claims))
}

func init() {
	licenseCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().SortFlags = false
	verifyCmd.Flags().BoolVar(&persist, "persist", false, "Persist the activation token")
	verifyCmd.Flags().BoolVar(&showJWT, "jwt", false, "Print the activation token claims")
	verifyCmd.Flags().BoolVar(&asYaml, "yaml", false, "Print the result as YAML")
}
