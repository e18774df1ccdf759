package models

import (
	"fmt"
	"time"
)

// WarningKind 非致命问题分类
type WarningKind string

const (
	WarnDegradedTrust     WarningKind = "DegradedTrustWarning"
	WarnReadinessTimeout  WarningKind = "ReadinessTimeoutWarning"
	WarnAppExited         WarningKind = "AppExitedWarning"
	WarnProcessGuard      WarningKind = "ProcessGuardWarning"
	WarnCertificateHealth WarningKind = "CertificateHealthWarning"
	WarnShortcut          WarningKind = "ShortcutWarning"
	WarnMarker            WarningKind = "MarkerWarning"
	WarnMetrics           WarningKind = "MetricsWarning"
)

// Warning 运行过程中累积、结束时统一汇总输出的非致命问题
type Warning struct {
	Kind        WarningKind `json:"kind" yaml:"kind"`
	Step        string      `json:"step" yaml:"step"`
	Message     string      `json:"message" yaml:"message"`
	Remediation string      `json:"remediation,omitempty" yaml:"remediation,omitempty"`
}

// FatalKind 致命错误分类，每类对应一个退出码
type FatalKind string

const (
	FatalRuntime      FatalKind = "runtime_unavailable"
	FatalLicense      FatalKind = "license_failed"
	FatalCollaborator FatalKind = "collaborator_missing"
	FatalLocked       FatalKind = "already_running"
	FatalLaunch       FatalKind = "launch_failed"
	FatalEnvironment  FatalKind = "environment_setup_failed"
)

const (
	ExitOK           = 0
	ExitRuntime      = 2
	ExitLicense      = 3
	ExitCollaborator = 4
	ExitLocked       = 5
	ExitLaunch       = 6
	ExitEnvironment  = 7
)

/**
 * FatalSetupError aborts the bootstrap pipeline
 * @property {string} step - Step that failed
 * @property {FatalKind} kind - Failure class, determines the exit code
 * @property {string} remediation - What the user should do next
 * @property {error} err - Underlying cause
 */
type FatalSetupError struct {
	Step        string
	Kind        FatalKind
	Remediation string
	Err         error
}

func NewFatal(step string, kind FatalKind, remediation string, err error) *FatalSetupError {
	return &FatalSetupError{Step: step, Kind: kind, Remediation: remediation, Err: err}
}

func (e *FatalSetupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Step, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Step, e.Kind, e.Err)
}

func (e *FatalSetupError) Unwrap() error {
	return e.Err
}

// ExitCode 致命错误对应的进程退出码
func (e *FatalSetupError) ExitCode() int {
	switch e.Kind {
	case FatalRuntime:
		return ExitRuntime
	case FatalLicense:
		return ExitLicense
	case FatalCollaborator:
		return ExitCollaborator
	case FatalLocked:
		return ExitLocked
	case FatalLaunch:
		return ExitLaunch
	case FatalEnvironment:
		return ExitEnvironment
	}
	return 1
}

/**
 * RunReport is the single output of one bootstrap run
 * @property {Mode} mode - Resolved mode
 * @property {[]string} steps - Steps executed, in order
 * @property {[]Warning} warnings - Accumulated non-fatal outcomes
 * @property {*FatalSetupError} fatal - Set when the pipeline aborted
 */
type RunReport struct {
	Mode          Mode                `json:"mode" yaml:"mode"`
	Steps         []string            `json:"steps" yaml:"steps"`
	Runtime       RuntimeCandidate    `json:"runtime" yaml:"runtime"`
	Trust         []TrustAnchorRecord `json:"trust,omitempty" yaml:"trust,omitempty"`
	Probe         *HealthProbeResult  `json:"probe,omitempty" yaml:"probe,omitempty"`
	URL           string              `json:"url,omitempty" yaml:"url,omitempty"`
	BrowserOpened bool                `json:"browserOpened" yaml:"browserOpened"`
	MarkerWritten bool                `json:"markerWritten" yaml:"markerWritten"`
	Warnings      []Warning           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Fatal         *FatalSetupError    `json:"-" yaml:"-"`
	StartTime     time.Time           `json:"startTime" yaml:"startTime"`
	Duration      time.Duration       `json:"duration" yaml:"duration"`
}

func (r *RunReport) Warn(kind WarningKind, step, message, remediation string) {
	r.Warnings = append(r.Warnings, Warning{Kind: kind, Step: step, Message: message, Remediation: remediation})
}

// Ran 记录执行过的步骤
func (r *RunReport) Ran(step string) {
	r.Steps = append(r.Steps, step)
}

func (r *RunReport) HasStep(step string) bool {
	for _, s := range r.Steps {
		if s == step {
			return true
		}
	}
	return false
}

func (r *RunReport) ExitCode() int {
	if r.Fatal != nil {
		return r.Fatal.ExitCode()
	}
	return ExitOK
}
