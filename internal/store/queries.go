package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uelogd/uelogd/internal/model"
	"github.com/uelogd/uelogd/internal/search"
	"github.com/uelogd/uelogd/internal/serverlog"
)

// latestSessionSubquery resolves the session of the most-recently-received
// entry across the whole store. Used for the implicit session constraint;
// id breaks received_at ties so repeated reads stay stable.
const latestSessionSubquery = `(SELECT session_id FROM logs ORDER BY received_at DESC, id DESC LIMIT 1)`

// filterConditions translates a LogFilter into WHERE conditions and args.
// The implicit latest-session constraint applies only when the caller gave
// no explicit session and did not ask for all sessions.
func filterConditions(filter model.LogFilter) (conditions []string, args []any) {
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.MinVerbosity != model.NoLogging {
		conditions = append(conditions, "verbosity <= ?")
		args = append(args, int(filter.MinVerbosity))
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Since != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, *filter.Until)
	}
	if filter.InstanceID != "" {
		conditions = append(conditions, "instance_id = ?")
		args = append(args, filter.InstanceID)
	}
	switch {
	case filter.SessionID != "":
		conditions = append(conditions, "session_id = ?")
		args = append(args, filter.SessionID)
	case !filter.AllSessions:
		conditions = append(conditions, "session_id = "+latestSessionSubquery)
	}
	return conditions, args
}

// Query returns entries matching the filter, newest producer timestamp
// first, bounded by the filter's limit and offset.
func (s *Store) Query(filter model.LogFilter) ([]model.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conditions, args := filterConditions(filter)
	return s.selectEntries(conditions, args, filter.Limit, filter.Offset)
}

// Search is Query with an additional full-text predicate over message.
// Matching is immediate: an entry is searchable as soon as Insert returns.
func (s *Store) Search(textQuery string, filter model.LogFilter) ([]model.LogEntry, error) {
	clause, searchArgs, err := search.Compile(textQuery, "message")
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conditions, args := filterConditions(filter)
	conditions = append(conditions, clause)
	args = append(args, searchArgs...)
	return s.selectEntries(conditions, args, filter.Limit, filter.Offset)
}

// selectEntries runs the shared SELECT; callers hold s.mu.
func (s *Store) selectEntries(conditions []string, args []any, limit, offset int) ([]model.LogEntry, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()

	if limit <= 0 {
		limit = model.DefaultQueryLimit
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, source, category, verbosity, message, timestamp, frame, file, line, received_at, session_id, instance_id FROM logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		var verbosity int
		var frame sql.NullInt64
		var file sql.NullString
		var line sql.NullInt32
		if err := rows.Scan(&e.ID, &e.Source, &e.Category, &verbosity, &e.Message,
			&e.Timestamp, &frame, &file, &line, &e.ReceivedAt, &e.SessionID, &e.InstanceID); err != nil {
			serverlog.Errorf("store", "scan error: %v", err)
			continue
		}
		e.Verbosity = model.Verbosity(verbosity)
		if frame.Valid {
			e.Frame = &frame.Int64
		}
		if file.Valid {
			e.File = &file.String
		}
		if line.Valid {
			n := int(line.Int32)
			e.Line = &n
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns aggregate counts, optionally restricted to one source and
// to producer timestamps at or after since. CurrentSession is always the
// whole-store latest session, unaffected by either restriction.
func (s *Store) Stats(source string, since *float64) (model.LogStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var conditions []string
	var args []any
	if source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, source)
	}
	if since != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, *since)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	and := func(extra string) string {
		if where == "" {
			return " WHERE " + extra
		}
		return where + " AND " + extra
	}

	var stats model.LogStats

	counts := []struct {
		dest  *int64
		query string
	}{
		{&stats.Total, "SELECT COUNT(*) FROM logs" + where},
		{&stats.Client, "SELECT COUNT(*) FROM logs" + and("source = 'client'")},
		{&stats.Server, "SELECT COUNT(*) FROM logs" + and("source = 'server'")},
		{&stats.Errors, fmt.Sprintf("SELECT COUNT(*) FROM logs%s", and(fmt.Sprintf("verbosity <= %d", int(model.Error))))},
		{&stats.Warnings, fmt.Sprintf("SELECT COUNT(*) FROM logs%s", and(fmt.Sprintf("verbosity = %d", int(model.Warning))))},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, args...).Scan(c.dest); err != nil {
			return model.LogStats{}, err
		}
	}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT session_id), COUNT(DISTINCT instance_id) FROM logs"+where, args...,
	).Scan(&stats.SessionCount, &stats.InstanceCount); err != nil {
		return model.LogStats{}, err
	}

	catQuery := fmt.Sprintf(`SELECT category, COUNT(*) AS count FROM logs%s
		GROUP BY category ORDER BY count DESC, category ASC LIMIT %d`, where, model.CategoryTopN)
	rows, err := s.db.QueryContext(ctx, catQuery, args...)
	if err != nil {
		return model.LogStats{}, err
	}
	defer rows.Close()

	stats.ByCategory = make(map[string]int64)
	for rows.Next() {
		var category string
		var count int64
		if err := rows.Scan(&category, &count); err != nil {
			serverlog.Errorf("store", "scan error (stats categories): %v", err)
			continue
		}
		stats.ByCategory[category] = count
	}
	if err := rows.Err(); err != nil {
		return model.LogStats{}, err
	}

	current, err := s.latestSessionLocked(ctx, "")
	if err != nil {
		return model.LogStats{}, err
	}
	stats.CurrentSession = current

	return stats, nil
}

// Categories returns the distinct category strings in ascending order,
// optionally restricted to one source.
func (s *Store) Categories(source string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	query := "SELECT DISTINCT category FROM logs"
	var args []any
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}
	query += " ORDER BY category ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			serverlog.Errorf("store", "scan error (categories): %v", err)
			continue
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// Sessions returns one SessionInfo per distinct session, most recently
// seen first, each with its distinct instance set.
func (s *Store) Sessions(source string) ([]model.SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	query := `SELECT session_id, MIN(received_at), MAX(received_at), COUNT(*) FROM logs`
	var args []any
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}
	query += " GROUP BY session_id ORDER BY MAX(received_at) DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.SessionInfo
	for rows.Next() {
		var info model.SessionInfo
		if err := rows.Scan(&info.SessionID, &info.FirstSeen, &info.LastSeen, &info.LogCount); err != nil {
			serverlog.Errorf("store", "scan error (sessions): %v", err)
			continue
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sessions {
		instances, err := s.sessionInstances(ctx, sessions[i].SessionID, source)
		if err != nil {
			return nil, err
		}
		sessions[i].Instances = instances
	}
	return sessions, nil
}

// sessionInstances resolves the distinct non-empty instance ids of one
// session; callers hold s.mu.
func (s *Store) sessionInstances(ctx context.Context, sessionID, source string) ([]string, error) {
	query := "SELECT DISTINCT instance_id FROM logs WHERE session_id = ? AND instance_id != ''"
	args := []any{sessionID}
	if source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}
	query += " ORDER BY instance_id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			serverlog.Errorf("store", "scan error (instances): %v", err)
			continue
		}
		instances = append(instances, id)
	}
	return instances, rows.Err()
}

// LatestSession returns the session of the most recently received entry,
// optionally restricted to one source. Empty string when no entries match.
func (s *Store) LatestSession(source string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()
	return s.latestSessionLocked(ctx, source)
}

func (s *Store) latestSessionLocked(ctx context.Context, source string) (string, error) {
	query := "SELECT session_id FROM logs"
	var args []any
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}
	query += " ORDER BY received_at DESC, id DESC LIMIT 1"

	var sessionID string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

// Clear bulk-deletes entries matching the optional source and before
// predicates (producer timestamp strictly less than before) and returns
// the number of rows removed.
func (s *Store) Clear(source string, before *float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var conditions []string
	var args []any
	if source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, source)
	}
	if before != nil {
		conditions = append(conditions, "timestamp < ?")
		args = append(args, *before)
	}

	query := "DELETE FROM logs"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count returns the total number of stored entries.
func (s *Store) Count() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM logs").Scan(&count)
	return count, err
}
