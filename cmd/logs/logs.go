package logs

import (
	"fmt"
	"path/filepath"

	"fcc-bootstrap/cmd/root"
	"fcc-bootstrap/internal/config"
	"fcc-bootstrap/services"

	"github.com/spf13/cobra"
)

var (
	showApp bool
	lines   int
	bundle  bool
	output  string
)

func init() {
	root.RootCmd.AddCommand(Cmd)
	Cmd.Flags().SortFlags = false
	Cmd.Flags().BoolVar(&showApp, "app", false, "Show the application log instead of the bootstrap log")
	Cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show, 0 for all")
	Cmd.Flags().BoolVar(&bundle, "bundle", false, "Package all logs into a diagnostic tarball")
	Cmd.Flags().StringVarP(&output, "output", "o", "", "Bundle output path")
}

var Cmd = &cobra.Command{
	Use:   "logs",
	Short: "Show logs or package them for support",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config
		logDir := filepath.Dir(cfg.Log.Path)
		ls := services.NewLogService(logDir, config.RuntimeCachePath(cfg.DataDir))

		if bundle {
			dest, err := ls.Bundle(output)
			if err != nil {
				return fmt.Errorf("failed to bundle logs: %w", err)
			}
			fmt.Printf("Diagnostic bundle written: %s\n", dest)
			return nil
		}

		name := filepath.Base(cfg.Log.Path)
		if showApp {
			name = services.AppLogName
		}
		out, err := ls.Tail(name, lines)
		if err != nil {
			return err
		}
		for _, l := range out {
			fmt.Println(l)
		}
		return nil
	},
}
