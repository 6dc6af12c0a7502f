// Package store owns the durable, queryable log table. All operations on a
// Store share one mutex so ingestion, queries, aggregate scans, and the
// subscriber fan-out always observe fully-applied writes.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/uelogd/uelogd/internal/model"
	"github.com/uelogd/uelogd/internal/store/migrate"
)

// Store is a DuckDB-backed append-only log store.
type Store struct {
	db           *sql.DB
	mu           sync.Mutex
	dbPath       string
	QueryTimeout time.Duration

	subscribers map[int]func(model.LogEntry)
	nextSubID   int
}

var _ model.EntryStore = (*Store)(nil)

// NewStore opens or creates a DuckDB database and applies the schema.
// If dbPath is empty, an in-memory database is used.
// An optional queryTimeout can be passed; it defaults to 30s.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	dsn := ""
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
		dsn = dbPath
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}

	if err := migrate.Run(db); err != nil {
		db.Close()
		return nil, err
	}

	qt := 30 * time.Second
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}

	return &Store{
		db:           db,
		dbPath:       dbPath,
		QueryTimeout: qt,
		subscribers:  make(map[int]func(model.LogEntry)),
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// queryCtx returns a context with the store's configured query timeout.
func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

// nowUnixSeconds is the store's wall clock, overridable in tests.
var nowUnixSeconds = func() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
