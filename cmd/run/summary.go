package run

import (
	"fmt"
	"strings"
	"time"

	"fcc-bootstrap/internal/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	fatalStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	sectionStyle = lipgloss.NewStyle().PaddingLeft(2)
)

// FatalOutput 致命错误的可序列化形式
type FatalOutput struct {
	Step        string `yaml:"step"`
	Kind        string `yaml:"kind"`
	Error       string `yaml:"error"`
	Remediation string `yaml:"remediation,omitempty"`
}

// RunOutput --yaml 输出
type RunOutput struct {
	Report   *models.RunReport `yaml:"report"`
	Fatal    *FatalOutput      `yaml:"fatal,omitempty"`
	ExitCode int               `yaml:"exitCode"`
}

func NewRunOutput(r *models.RunReport) RunOutput {
	out := RunOutput{Report: r, ExitCode: r.ExitCode()}
	if r.Fatal != nil {
		out.Fatal = &FatalOutput{
			Step:        r.Fatal.Step,
			Kind:        string(r.Fatal.Kind),
			Error:       r.Fatal.Error(),
			Remediation: r.Fatal.Remediation,
		}
	}
	return out
}

/**
 * Render the end-of-run summary
 * @param {*models.RunReport} r - Report of the finished run
 * @returns {string} Mode, steps, trust outcome, warnings with remediation, and the fatal error if any
 */
func RenderSummary(r *models.RunReport) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("FCC bootstrap: %s", r.Mode)))
	b.WriteString("\n")

	var lines []string
	lines = append(lines, "steps: "+strings.Join(r.Steps, " → "))
	if !r.Runtime.IsZero() {
		lines = append(lines, fmt.Sprintf("runtime: %s %s (%s)", r.Runtime.Path, r.Runtime.Version, r.Runtime.Source))
	}
	for _, rec := range r.Trust {
		if rec.Installed {
			lines = append(lines, okStyle.Render(fmt.Sprintf("trust %s: installed via %s", rec.Scope, rec.Method)))
		} else {
			lines = append(lines, warnStyle.Render(fmt.Sprintf("trust %s: not installed (%s)", rec.Scope, rec.Error)))
		}
	}
	if r.URL != "" {
		state := warnStyle.Render("not ready")
		switch {
		case r.Probe != nil && r.Probe.Ready:
			state = okStyle.Render("ready")
		case r.Probe != nil && r.Probe.Exited:
			state = fatalStyle.Render(fmt.Sprintf("exited (code %d)", r.Probe.ExitCode))
		}
		lines = append(lines, fmt.Sprintf("url: %s %s", r.URL, state))
	}
	if r.MarkerWritten {
		lines = append(lines, "installation marker written")
	}
	lines = append(lines, dimStyle.Render(fmt.Sprintf("duration: %s", r.Duration.Round(time.Millisecond))))
	b.WriteString(sectionStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n")

	if len(r.Warnings) > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("%d warning(s):", len(r.Warnings))))
		b.WriteString("\n")
		var ws []string
		for _, w := range r.Warnings {
			ws = append(ws, fmt.Sprintf("[%s] %s: %s", w.Step, w.Kind, w.Message))
			if w.Remediation != "" {
				ws = append(ws, "  → "+w.Remediation)
			}
		}
		b.WriteString(sectionStyle.Render(strings.Join(ws, "\n")))
		b.WriteString("\n")
	}

	if r.Fatal != nil {
		b.WriteString(fatalStyle.Render(fmt.Sprintf("FAILED at %s (exit %d)", r.Fatal.Step, r.ExitCode())))
		b.WriteString("\n")
		fl := []string{r.Fatal.Error()}
		if r.Fatal.Remediation != "" {
			fl = append(fl, "→ "+r.Fatal.Remediation)
		}
		b.WriteString(sectionStyle.Render(strings.Join(fl, "\n")))
		b.WriteString("\n")
	} else {
		b.WriteString(okStyle.Render("Done"))
		b.WriteString("\n")
	}
	return b.String()
}
