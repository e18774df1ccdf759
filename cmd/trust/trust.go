package trust

import (
	"fcc-bootstrap/cmd/root"

	"github.com/spf13/cobra"
)

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Trust store operations",
	Long:  `Install the local root authority into the OS and browser trust stores`,
}

const trustExample = `  fcc-bootstrap trust install
  fcc-bootstrap trust install --scope user
  fcc-bootstrap trust install --scope machine --no-elevate`

func init() {
	root.RootCmd.AddCommand(trustCmd)
	trustCmd.Example = trustExample
}
