package cert

import (
	"errors"
	"fmt"

	"fcc-bootstrap/cmd/root"
	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/services"

	"github.com/spf13/cobra"
)

var ensureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the local root authority and server certificate when missing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, cm := newCertManager()
		paths, err := cm.EnsureAuthority(cmd.Context())
		if err != nil {
			if errors.Is(err, services.ErrCertToolMissing) || errors.Is(err, services.ErrAuthorityIncomplete) {
				root.SetExitCode(models.ExitCollaborator)
			}
			return err
		}
		fmt.Printf("Root CA:     %s\n", paths.RootCert)
		fmt.Printf("Server cert: %s\n", paths.ServerCert)
		fmt.Printf("Server key:  %s\n", paths.ServerKey)
		return nil
	},
}

func init() {
	certCmd.AddCommand(ensureCmd)
}
