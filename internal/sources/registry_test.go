package sources

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/uelogd/uelogd/internal/model"
)

type nullWriter struct{}

func (nullWriter) Insert(entry *model.LogEntry) (int64, error) { return 1, nil }

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(nullWriter{}, 20*time.Millisecond)
	t.Cleanup(r.StopAll)
	return r
}

func tempLogFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.log")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestAddFileTailerAssignsSequentialIDs(t *testing.T) {
	r := newTestRegistry(t)

	first := r.AddFileTailer(tempLogFile(t), "")
	second := r.AddFileTailer(tempLogFile(t), "")
	if first != "file-1" {
		t.Errorf("first id = %q, want file-1", first)
	}
	if second != "file-2" {
		t.Errorf("second id = %q, want file-2", second)
	}
}

func TestAddFileTailerFailureLeavesRegistryUnchanged(t *testing.T) {
	r := newTestRegistry(t)
	r.AddFileTailer(tempLogFile(t), "")

	id := r.AddFileTailer(filepath.Join(t.TempDir(), "missing.log"), "")
	if id != "" {
		t.Errorf("failed add returned id %q, want empty", id)
	}
	if got := len(r.ListSources()); got != 1 {
		t.Errorf("registry has %d sources after failed add, want 1", got)
	}

	// The counter still advances past the failed attempt.
	next := r.AddFileTailer(tempLogFile(t), "")
	if next != "file-3" {
		t.Errorf("id after failed add = %q, want file-3", next)
	}
}

func TestListSources(t *testing.T) {
	r := newTestRegistry(t)
	path := tempLogFile(t)
	id := r.AddFileTailer(path, "GameServer")

	infos := r.ListSources()
	if len(infos) != 1 {
		t.Fatalf("ListSources returned %d, want 1", len(infos))
	}
	info := infos[0]
	if info.ID != id || info.Type != "file-tailer" || info.Name != "GameServer" || info.Path != path {
		t.Errorf("info = %+v", info)
	}
	if !info.Running {
		t.Error("source should report running")
	}
}

func TestRemoveSource(t *testing.T) {
	r := newTestRegistry(t)
	id := r.AddFileTailer(tempLogFile(t), "")

	if !r.RemoveSource(id) {
		t.Errorf("RemoveSource(%q) = false, want true", id)
	}
	if r.RemoveSource(id) {
		t.Error("second RemoveSource should return false")
	}
	if r.RemoveSource("file-999") {
		t.Error("RemoveSource of unknown id should return false")
	}
	if got := len(r.ListSources()); got != 0 {
		t.Errorf("registry has %d sources after remove, want 0", got)
	}
}

func TestStopAllIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	r.AddFileTailer(tempLogFile(t), "")
	r.AddFileTailer(tempLogFile(t), "")

	r.StopAll()
	if got := len(r.ListSources()); got != 0 {
		t.Errorf("registry has %d sources after StopAll, want 0", got)
	}
	r.StopAll()
}
