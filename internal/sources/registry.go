// Package sources owns the set of dynamically created file tailers and
// hands out stable identifiers for them.
package sources

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/uelogd/uelogd/internal/model"
	"github.com/uelogd/uelogd/internal/tailer"
)

// Registry tracks live tailers by identifier. All mutation is serialized
// under one mutex so concurrent add/remove/list never corrupt the mapping
// or double-stop a tailer.
type Registry struct {
	writer       model.EntryWriter
	pollInterval time.Duration

	mu      sync.Mutex
	tailers map[string]*tailer.Tailer
	counter int
}

// NewRegistry creates an empty registry. Tailers it creates poll at
// pollInterval; zero uses the tailer default.
func NewRegistry(writer model.EntryWriter, pollInterval time.Duration) *Registry {
	return &Registry{
		writer:       writer,
		pollInterval: pollInterval,
		tailers:      make(map[string]*tailer.Tailer),
	}
}

// AddFileTailer creates and starts a tailer for path, returning its
// identifier. A failed start (missing path) returns "" and leaves the
// registry unchanged; the identifier counter still advances.
func (r *Registry) AddFileTailer(path, name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counter++
	id := fmt.Sprintf("file-%d", r.counter)

	t := tailer.New(path, name, r.writer, r.pollInterval)
	if err := t.Start(); err != nil {
		return ""
	}

	r.tailers[id] = t
	return id
}

// RemoveSource stops and removes the tailer with the given id. Returns
// false when the id is unknown.
func (r *Registry) RemoveSource(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tailers[id]
	if !ok {
		return false
	}
	t.Stop()
	delete(r.tailers, id)
	return true
}

// ListSources returns one SourceInfo per registered tailer, sorted by id,
// with the live running state at call time.
func (r *Registry) ListSources() []model.SourceInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]model.SourceInfo, 0, len(r.tailers))
	for id, t := range r.tailers {
		infos = append(infos, model.SourceInfo{
			ID:      id,
			Type:    "file-tailer",
			Name:    t.Name(),
			Path:    t.Path(),
			Running: t.Running(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// StopAll stops and discards every tailer. Safe to call repeatedly.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.tailers {
		t.Stop()
		delete(r.tailers, id)
	}
}
