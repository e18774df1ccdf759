package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fcc-bootstrap/internal/models"
)

/**
 * Runtime remembered by the last provisioning run
 * @property {RuntimeCandidate} runtime - Interpreter selected for launch
 * @property {string} install_root - Root the interpreter was resolved for
 * @property {time.Time} resolved_at - When the runtime was resolved
 */
type RuntimeCache struct {
	Runtime     models.RuntimeCandidate `json:"runtime"`
	InstallRoot string                  `json:"install_root"`
	ResolvedAt  time.Time               `json:"resolved_at"`
}

var cacheLock sync.Mutex

func RuntimeCachePath(dataDir string) string {
	return filepath.Join(dataDir, "runtime.json")
}

/**
 * Load runtime cache from <dataDir>/runtime.json
 * @returns {*RuntimeCache} Cached runtime, error when absent or unreadable
 */
func LoadRuntimeCache(dataDir string) (*RuntimeCache, error) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	bytes, err := os.ReadFile(RuntimeCachePath(dataDir))
	if err != nil {
		return nil, err
	}
	var cache RuntimeCache
	if err := json.Unmarshal(bytes, &cache); err != nil {
		return nil, fmt.Errorf("unmarshal 'runtime.json' failed: %w", err)
	}
	return &cache, nil
}

// SaveRuntimeCache 记录本次使用的运行时，供 QUICK_LAUNCH 使用
func SaveRuntimeCache(dataDir string, cache RuntimeCache) error {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}
	bytes, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	tmp := RuntimeCachePath(dataDir) + ".tmp"
	if err := os.WriteFile(tmp, bytes, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, RuntimeCachePath(dataDir))
}
