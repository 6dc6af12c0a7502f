package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/uelogd/uelogd/internal/model"
)

func TestSnapshotToCopiesDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "logs.duckdb")

	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	mustInsert(t, s, entry("client", "LogTemp", model.Log, "survives the snapshot"))

	dst := filepath.Join(dir, "snapshots", "snap.duckdb")
	if err := s.SnapshotTo(dst); err != nil {
		t.Fatalf("SnapshotTo: %v", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("snapshot file is empty")
	}

	// The snapshot must itself open as a valid store with the data intact.
	restored, err := NewStore(dst)
	if err != nil {
		t.Fatalf("opening snapshot: %v", err)
	}
	defer restored.Close()

	count, err := restored.Count()
	if err != nil {
		t.Fatalf("Count on snapshot: %v", err)
	}
	if count != 1 {
		t.Errorf("snapshot Count = %d, want 1", count)
	}
}

func TestDBPath(t *testing.T) {
	s := newTestStore(t)
	if got := s.DBPath(); got != "" {
		t.Errorf("in-memory DBPath = %q, want empty", got)
	}
}
