// Package backup takes periodic local snapshots of the log database and
// prunes old copies.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/uelogd/uelogd/internal/serverlog"
)

const (
	defaultInterval = 6 * time.Hour
	defaultKeepLast = 24

	snapshotPrefix = "uelogd-"
	snapshotSuffix = ".duckdb"
)

// Snapshotter is the store surface the manager needs.
type Snapshotter interface {
	SnapshotTo(dstPath string) error
	DBPath() string
}

// Config controls the snapshot schedule and retention.
type Config struct {
	Enabled  bool
	LocalDir string
	Interval time.Duration
	KeepLast int
}

// Manager runs periodic local snapshots.
type Manager struct {
	store Snapshotter
	cfg   Config

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewManager starts the snapshot loop. It returns nil when backups are
// disabled, and an error for configurations that can never snapshot.
func NewManager(store Snapshotter, cfg Config) (*Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if store == nil {
		return nil, fmt.Errorf("backup: nil snapshotter")
	}
	if strings.TrimSpace(store.DBPath()) == "" {
		return nil, fmt.Errorf("backup: db-path is empty (in-memory store)")
	}
	if strings.TrimSpace(cfg.LocalDir) == "" {
		return nil, fmt.Errorf("backup: local-dir is required when backup is enabled")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create local-dir: %w", err)
	}

	m := &Manager{
		store: store,
		cfg:   cfg,
		done:  make(chan struct{}),
	}

	// Startup snapshot to reduce the recovery point after restarts.
	if err := m.RunOnce(); err != nil {
		serverlog.Errorf("backup", "startup snapshot failed: %v", err)
	}

	m.wg.Add(1)
	go m.loop()
	return m, nil
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.RunOnce(); err != nil {
				serverlog.Errorf("backup", "periodic snapshot failed: %v", err)
			}
		case <-m.done:
			return
		}
	}
}

// RunOnce creates one snapshot and prunes old copies past KeepLast.
func (m *Manager) RunOnce() error {
	fileName := snapshotPrefix + time.Now().UTC().Format("20060102-150405") + snapshotSuffix
	localPath := filepath.Join(m.cfg.LocalDir, fileName)

	if err := m.store.SnapshotTo(localPath); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	serverlog.Logf("backup", "created snapshot %s", localPath)

	if err := prune(m.cfg.LocalDir, m.cfg.KeepLast); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

// Stop terminates the periodic snapshot loop. Safe to call repeatedly.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}

func prune(localDir string, keepLast int) error {
	matches, err := filepath.Glob(filepath.Join(localDir, snapshotPrefix+"*"+snapshotSuffix))
	if err != nil {
		return err
	}
	if len(matches) <= keepLast {
		return nil
	}

	// The timestamp is embedded in the name, so lexical order is
	// chronological.
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))

	for _, oldPath := range matches[keepLast:] {
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
