// Package file implements a filesystem-backed checkpoint store.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/acstiles/media-preloader/internal/preload"
)

// Config captures the parameters for the filesystem checkpoint store.
type Config struct {
	// BaseDir is the directory holding one JSON file per domain.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// Store writes one snapshot file per domain under a base directory.
type Store struct {
	baseDir string
}

// New creates a filesystem-backed Store, creating and probing the base
// directory up front so misconfiguration fails fast.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return nil, fmt.Errorf("base directory path is not a directory")
		}
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	default:
		return nil, fmt.Errorf("stat base directory: %w", err)
	}

	probe := filepath.Join(cfg.BaseDir, ".writable_probe")
	if err := os.WriteFile(probe, []byte("probe"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("clean up probe file: %w", err)
	}

	return &Store{baseDir: cfg.BaseDir}, nil
}

// Save writes the snapshot for domain, replacing any previous file.
func (s *Store) Save(_ context.Context, domain preload.Domain, snap preload.Snapshot) error {
	if !domain.Valid() {
		return fmt.Errorf("unknown domain %q", domain)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tmp := s.path(domain) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path(domain)); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot for domain. A missing file is a plain miss;
// an unparseable file is reported as *CheckpointParseError.
func (s *Store) Load(_ context.Context, domain preload.Domain) (preload.Snapshot, bool, error) {
	if !domain.Valid() {
		return preload.Snapshot{}, false, fmt.Errorf("unknown domain %q", domain)
	}
	data, err := os.ReadFile(s.path(domain))
	if err != nil {
		if os.IsNotExist(err) {
			return preload.Snapshot{}, false, nil
		}
		return preload.Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}
	var snap preload.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return preload.Snapshot{}, false, &preload.CheckpointParseError{Domain: domain, Err: err}
	}
	return snap, true, nil
}

// Clear removes the durable entry for domain. Clearing an absent
// checkpoint is not an error.
func (s *Store) Clear(_ context.Context, domain preload.Domain) error {
	if !domain.Valid() {
		return fmt.Errorf("unknown domain %q", domain)
	}
	if err := os.Remove(s.path(domain)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}

func (s *Store) path(domain preload.Domain) string {
	return filepath.Join(s.baseDir, string(domain)+".json")
}
