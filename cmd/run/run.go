package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fcc-bootstrap/cmd/root"
	"fcc-bootstrap/internal/config"
	"fcc-bootstrap/internal/env"
	"fcc-bootstrap/internal/logger"
	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/utils"
	"fcc-bootstrap/services"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	noBrowser       bool
	port            int
	timeoutAttempts int
	asYaml          bool
	persist         bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Install, repair or launch the FCC platform",
	Long: `Detects the install state and runs the matching bootstrap pipeline:
  INSTALL       no installation marker: full provisioning, then launch
  REPAIR        marker present, desktop shortcut missing: re-provision, then launch
  QUICK_LAUNCH  marker and shortcut present: launch only`,
	Args: cobra.NoArgs,
	Run:  runBootstrap,
}

const runExample = `  # double-click behaviour
  fcc-bootstrap
  fcc-bootstrap run --no-browser
  fcc-bootstrap run --port 8443 --timeout-attempts 60
  fcc-bootstrap run --yaml`

func addRunFlags(fs *pflag.FlagSet) {
	fs.SortFlags = false
	fs.BoolVar(&noBrowser, "no-browser", false, "Do not open the browser after launch")
	fs.IntVar(&port, "port", 0, "Preferred application port (overrides FCC_PORT and config)")
	fs.IntVar(&timeoutAttempts, "timeout-attempts", 0, "Readiness probes before giving up")
	fs.BoolVar(&asYaml, "yaml", false, "Print the run report as YAML")
	fs.BoolVar(&persist, "persist", false, "Persist the license activation token")
}

/**
 * Build the bootstrap context and run the orchestrator
 * @description
 * - Mode is derived from the filesystem, never from flags
 * - The process exit code is taken from the run report
 */
func runBootstrap(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &config.Config
	if port > 0 {
		cfg.Launch.Port = port
	}
	if timeoutAttempts > 0 {
		cfg.Launch.MaxAttempts = timeoutAttempts
	}

	self, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "locate executable: %v\n", err)
		root.SetExitCode(models.ExitCollaborator)
		return
	}
	boot := env.NewBootstrapContext(cfg.InstallRoot, cfg.DataDir, env.GetDesktopDir(), cfg.Shortcut.Name)
	boot.Elevated = utils.IsElevated()
	logger.Infof("Bootstrap started: root=%s mode=%s elevated=%v", boot.InstallRoot, boot.Mode(), boot.Elevated)

	o := services.NewOrchestrator(cfg, boot, self)
	o.NoBrowser = noBrowser
	o.Stateless = !persist

	report := o.Run(ctx)
	if asYaml {
		utils.PrintYaml(NewRunOutput(report))
	} else {
		fmt.Println(RenderSummary(report))
	}
	if report.Fatal != nil {
		logger.Errorf("Bootstrap failed: %v", report.Fatal)
	}
	root.SetExitCode(report.ExitCode())
}

func init() {
	addRunFlags(runCmd.Flags())
	runCmd.Example = runExample
	root.RootCmd.AddCommand(runCmd)

	// 无子命令时(双击启动)执行 run
	addRunFlags(root.RootCmd.Flags())
	root.RootCmd.Args = cobra.NoArgs
	root.RootCmd.Run = runBootstrap
}
