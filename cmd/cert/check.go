package cert

import (
	"fmt"

	"fcc-bootstrap/cmd/root"
	"fcc-bootstrap/internal/utils"

	"github.com/spf13/cobra"
)

var checkYaml bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Diagnose the local root authority and server certificate",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		_, _, cm := newCertManager()
		report := cm.HealthCheck(cmd.Context())
		if checkYaml {
			utils.PrintYaml(report)
		} else if report.Healthy {
			fmt.Printf("Certificates healthy, root expires in %d days, server in %d days\n",
				report.Root.DaysLeft, report.Server.DaysLeft)
		} else {
			fmt.Println("Certificate problems:")
			for _, p := range report.Problems {
				fmt.Printf("  - %s\n", p)
			}
		}
		if !report.Healthy {
			root.SetExitCode(1)
		}
	},
}

func init() {
	certCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkYaml, "yaml", false, "Print the report as YAML")
}
