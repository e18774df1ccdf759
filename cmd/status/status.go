package status

import (
	"context"
	"fmt"
	"os"

	"fcc-bootstrap/cmd/root"
	"fcc-bootstrap/internal/config"
	"fcc-bootstrap/internal/env"
	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/rpc"
	"fcc-bootstrap/internal/utils"
	"fcc-bootstrap/services"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	asYaml bool
	remote bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show install state, mode and certificate health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if remote {
			return showRemoteStatus()
		}
		showStatus(cmd.Context())
		return nil
	},
}

// StatusOutput --yaml 输出
type StatusOutput struct {
	Status models.StatusResponse   `yaml:"status"`
	Cert   models.CertHealthReport `yaml:"cert"`
}

/**
 * Print what the next run would do without changing anything
 * @description
 * - Mode is derived the same way the run command derives it
 * - Certificate health is diagnostic only; the exit code stays 0
 */
func showStatus(ctx context.Context) {
	cfg := &config.Config
	boot := env.NewBootstrapContext(cfg.InstallRoot, cfg.DataDir, env.GetDesktopDir(), cfg.Shortcut.Name)
	boot.Elevated = utils.IsElevated()
	st := services.BuildStatus(cfg, boot)
	health := services.NewCertManagerFromConfig(cfg, boot.CertDir, utils.ExecRunner{}).HealthCheck(ctx)

	if asYaml {
		utils.PrintYaml(StatusOutput{Status: st, Cert: health})
		return
	}
	printTable(st, health)
}

// showRemoteStatus 从正在运行的 serve 命令获取状态
func showRemoteStatus() error {
	client := rpc.NewHTTPClient(nil)
	defer client.Close()

	var out StatusOutput
	rsp, err := client.Get("/fcc/api/v1/status", nil)
	if err != nil {
		return fmt.Errorf("control API unavailable: %w", err)
	}
	if err := rsp.Decode(&out.Status); err != nil {
		return err
	}
	rsp, err = client.Post("/fcc/api/v1/check", nil)
	if err != nil {
		return fmt.Errorf("control API unavailable: %w", err)
	}
	if err := rsp.Decode(&out.Cert); err != nil {
		return err
	}
	if asYaml {
		utils.PrintYaml(out)
		return nil
	}
	printTable(out.Status, out.Cert)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func printTable(st models.StatusResponse, health models.CertHealthReport) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle("FCC bootstrap status")
	t.AppendRow(table.Row{"Mode", st.Mode})
	t.AppendRow(table.Row{"Install root", st.InstallRoot})
	t.AppendRow(table.Row{"Data dir", st.DataDir})
	marker := yesNo(st.MarkerPresent)
	if st.MarkerTime != "" {
		marker += " (" + st.MarkerTime + ")"
	}
	t.AppendRow(table.Row{"Installed", marker})
	t.AppendRow(table.Row{"Shortcut", fmt.Sprintf("%s %s", yesNo(st.ShortcutPresent), st.ShortcutPath)})
	if st.Runtime != nil {
		t.AppendRow(table.Row{"Runtime", fmt.Sprintf("%s %s (%s)", st.Runtime.Path, st.Runtime.Version, st.Runtime.Source)})
	} else {
		t.AppendRow(table.Row{"Runtime", "-"})
	}
	t.AppendRow(table.Row{"Elevated", yesNo(st.Elevated)})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Root CA", certLine(health.Root)})
	t.AppendRow(table.Row{"Server cert", certLine(health.Server)})
	t.AppendRow(table.Row{"Cert healthy", yesNo(health.Healthy)})
	for _, p := range health.Problems {
		t.AppendRow(table.Row{"", p})
	}
	t.Render()
}

func certLine(s models.CertFileStatus) string {
	if !s.Exists {
		return "missing: " + s.Path
	}
	if s.ParseFail != "" {
		return "unreadable: " + s.ParseFail
	}
	return fmt.Sprintf("%s, expires %s (%d days)", s.Subject, s.NotAfter.Format("2006-01-02"), s.DaysLeft)
}

func init() {
	root.RootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&asYaml, "yaml", false, "Print as YAML")
	statusCmd.Flags().BoolVar(&remote, "remote", false, "Query a running 'fcc-bootstrap serve' instead of probing locally")
	statusCmd.Example = `  fcc-bootstrap status
  fcc-bootstrap status --yaml
  fcc-bootstrap status --remote`
}
