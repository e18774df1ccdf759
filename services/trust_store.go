package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"fcc-bootstrap/internal/logger"
	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/internal/utils"
)

/**
 * TrustMechanism is one way of installing the authority into a scope
 * @property {string} name - Shown in TrustAnchorRecord.Method
 * @property {func(string) ([]utils.Command, error)} build - Commands run in order for the given CA path
 */
type TrustMechanism struct {
	Name  string
	Build func(caPath string) ([]utils.Command, error)
}

// Elevator 以管理员权限重新执行自身的指定子命令并等待其退出
type Elevator interface {
	RunElevated(ctx context.Context, args []string) (int, error)
}

/**
 * TrustStore installs the local root authority into every available scope
 * @property {map} plans - Mechanisms per scope, primary first
 * @property {bool} elevated - Process already has administrative rights
 * @property {bool} elevate - Hand the machine scope to the Elevator when not elevated
 * @property {string} copyDir - Where the user-visible CA copy is placed every run
 */
type TrustStore struct {
	plans    map[models.TrustScope][]TrustMechanism
	runner   utils.Runner
	elevator Elevator
	elevated bool
	elevate  bool
	copyDir  string
	copyName string
}

func NewTrustStore(plans map[models.TrustScope][]TrustMechanism, runner utils.Runner, elevator Elevator, elevated, elevate bool, copyDir, copyName string) *TrustStore {
	return &TrustStore{
		plans:    plans,
		runner:   runner,
		elevator: elevator,
		elevated: elevated,
		elevate:  elevate,
		copyDir:  copyDir,
		copyName: copyName,
	}
}

// CopyPath 用户可见的根证书副本位置
func (ts *TrustStore) CopyPath() string {
	return filepath.Join(ts.copyDir, ts.copyName)
}

/**
 * Install the authority into machine and user scopes
 * @param {string} caPath - Root authority certificate
 * @returns {[]models.TrustAnchorRecord} One record per scope, machine first; never fails as a whole
 */
func (ts *TrustStore) InstallTrust(ctx context.Context, caPath string) []models.TrustAnchorRecord {
	if err := utils.CopyFile(caPath, ts.CopyPath(), 0644); err != nil {
		logger.Warnf("Copy root authority to %s failed: %v", ts.CopyPath(), err)
	} else {
		logger.Infof("Root authority copied to %s for manual import", ts.CopyPath())
	}

	records := make([]models.TrustAnchorRecord, 0, len(models.AllScopes))
	for _, scope := range models.AllScopes {
		var rec models.TrustAnchorRecord
		if scope == models.ScopeMachine && !ts.elevated {
			rec = ts.installElevated(ctx, caPath)
		} else {
			rec = ts.InstallScope(ctx, scope, caPath)
		}
		if rec.Installed {
			logger.Infof("Trust anchor installed in %s scope via %s", rec.Scope, rec.Method)
		} else {
			logger.Warnf("Trust anchor not installed in %s scope: %s", rec.Scope, rec.Error)
		}
		records = append(records, rec)
	}
	return records
}

/**
 * Install into one scope in-process, primary mechanism then fallbacks
 * @returns {models.TrustAnchorRecord} Installed with the first succeeding mechanism, or the last error
 */
func (ts *TrustStore) InstallScope(ctx context.Context, scope models.TrustScope, caPath string) models.TrustAnchorRecord {
	rec := models.TrustAnchorRecord{Scope: scope}
	mechanisms := ts.plans[scope]
	if len(mechanisms) == 0 {
		rec.Error = "no trust mechanism available on this platform"
		return rec
	}
	var failures []string
	for _, m := range mechanisms {
		rec.Method = m.Name
		if err := ts.runMechanism(ctx, m, caPath); err != nil {
			logger.Debugf("Trust mechanism %s for %s scope failed: %v", m.Name, scope, err)
			failures = append(failures, fmt.Sprintf("%s: %v", m.Name, err))
			continue
		}
		rec.Installed = true
		rec.Error = ""
		return rec
	}
	rec.Error = strings.Join(failures, "; ")
	return rec
}

func (ts *TrustStore) runMechanism(ctx context.Context, m TrustMechanism, caPath string) error {
	cmds, err := m.Build(caPath)
	if err != nil {
		return err
	}
	for _, cmd := range cmds {
		if _, err := ts.runner.Run(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (ts *TrustStore) installElevated(ctx context.Context, caPath string) models.TrustAnchorRecord {
	rec := models.TrustAnchorRecord{Scope: models.ScopeMachine, Method: "elevated"}
	if !ts.elevate || ts.elevator == nil {
		rec.Error = "administrator rights required"
		return rec
	}
	code, err := ts.elevator.RunElevated(ctx, []string{
		"trust", "install",
		"--scope", string(models.ScopeMachine),
		"--ca", caPath,
		"--no-elevate",
	})
	switch {
	case err != nil:
		rec.Error = fmt.Sprintf("elevation failed: %v", err)
	case code != 0:
		rec.Error = fmt.Sprintf("elevated trust install exited with code %d", code)
	default:
		rec.Installed = true
	}
	return rec
}
