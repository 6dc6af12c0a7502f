package model

// EntryWriter is the write contract ingestion paths depend on. Implemented
// by the store; keeping ingestion against this interface lets tests feed a
// capture sink instead of a real database.
type EntryWriter interface {
	Insert(entry *LogEntry) (int64, error)
}

// EntryReader is the read-side query contract consumed by the HTTP API.
type EntryReader interface {
	Query(filter LogFilter) ([]LogEntry, error)
	Search(textQuery string, filter LogFilter) ([]LogEntry, error)
	Stats(source string, since *float64) (LogStats, error)
	Categories(source string) ([]string, error)
	Sessions(source string) ([]SessionInfo, error)
	LatestSession(source string) (string, error)
	Count() (int64, error)
}

// EntryStore is the full store surface the external protocol layer may call.
type EntryStore interface {
	EntryWriter
	EntryReader
	Clear(source string, before *float64) (int64, error)
}
