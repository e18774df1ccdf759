package cert

import (
	"fmt"

	"fcc-bootstrap/internal/utils"
	"fcc-bootstrap/services"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var rawMarkdown bool

var instructionsCmd = &cobra.Command{
	Use:   "instructions",
	Short: "Show manual steps for trusting the local root authority",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, boot, cm := newCertManager()
		ts := services.NewTrustStoreFromConfig(cfg, boot, cm, "", false, utils.ExecRunner{})
		md := cm.Instructions(ts.CopyPath())
		if rawMarkdown {
			fmt.Print(md)
			return nil
		}
		out, err := glamour.Render(md, "dark")
		if err != nil {
			fmt.Print(md)
			return nil
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	certCmd.AddCommand(instructionsCmd)
	instructionsCmd.Flags().BoolVar(&rawMarkdown, "raw", false, "Print markdown without rendering")
}
