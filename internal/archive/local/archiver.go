// Package local implements raw-payload archival to the local filesystem.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config captures the parameters for the local payload archive.
type Config struct {
	// BaseDir is the root directory where payloads will be stored.
	BaseDir string `mapstructure:"base_dir"`
}

// Archiver writes each cycle's raw API response under
// <base_dir>/<yyyy-mm-dd>/<cycle-id>.json. It is an optional collaborator;
// the ingestion core never depends on it succeeding.
type Archiver struct {
	baseDir string
}

// New validates the base directory (creating it if absent) and checks it
// is writable.
func New(cfg Config) (*Archiver, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("clean up writability probe: %w", err)
	}

	return &Archiver{baseDir: cfg.BaseDir}, nil
}

// Archive writes one payload, partitioned by day.
func (a *Archiver) Archive(_ context.Context, cycleID string, body []byte) error {
	if strings.TrimSpace(cycleID) == "" {
		return fmt.Errorf("cycle id is required")
	}
	if strings.ContainsAny(cycleID, `/\`) {
		return fmt.Errorf("invalid cycle id %q", cycleID)
	}

	dir := filepath.Join(a.baseDir, time.Now().UTC().Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create archive partition: %w", err)
	}
	path := filepath.Join(dir, cycleID+".json")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}
