package license

import (
	"fcc-bootstrap/cmd/root"

	"github.com/spf13/cobra"
)

var licenseCmd = &cobra.Command{
	Use:   "license",
	Short: "License operations",
	Long:  `Verify the FCC license against the license collaborator`,
}

func init() {
	root.RootCmd.AddCommand(licenseCmd)
	licenseCmd.Example = `  fcc-bootstrap license verify
  fcc-bootstrap license verify --persist --jwt`
}
