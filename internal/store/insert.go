package store

import (
	"fmt"

	"github.com/uelogd/uelogd/internal/model"
)

// Insert appends one entry and returns its assigned id. ReceivedAt is
// stamped with the current wall clock when the caller left it unset. After
// the row is durable, every subscriber is invoked synchronously with the
// finalized entry, still under the store lock, so subscribers see entries
// in true insertion order. Slow subscribers stall ingestion; they must
// hand off internally.
func (s *Store) Insert(entry *model.LogEntry) (int64, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ReceivedAt == 0 {
		entry.ReceivedAt = nowUnixSeconds()
	}

	err := s.db.QueryRowContext(ctx, `INSERT INTO logs
		(source, category, verbosity, message, timestamp, frame, file, line, received_at, session_id, instance_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		entry.Source, entry.Category, int(entry.Verbosity), entry.Message,
		entry.Timestamp, entry.Frame, entry.File, entry.Line,
		entry.ReceivedAt, entry.SessionID, entry.InstanceID,
	).Scan(&entry.ID)
	if err != nil {
		return 0, fmt.Errorf("insert log entry: %w", err)
	}

	for _, notify := range s.subscribers {
		notify(*entry)
	}

	return entry.ID, nil
}

// Subscribe registers a callback invoked on every future insert with the
// finalized entry. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(model.LogEntry)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}
