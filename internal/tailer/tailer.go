// Package tailer synthesizes log entries from lines appended to a text
// file. It handles growth, truncation/rotation, and transient absence of
// the file; pre-existing content is never replayed.
package tailer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/uelogd/uelogd/internal/model"
	"github.com/uelogd/uelogd/internal/serverlog"
)

// Poll timing. The missing-file retry is deliberately longer than the poll
// interval to ride out rotation-in-progress windows.
const (
	DefaultPollInterval = 200 * time.Millisecond
	missingFileRetry    = 1 * time.Second
)

// State is the tailer lifecycle phase.
type State int32

const (
	Stopped State = iota
	Starting
	Running
	// Terminated is the terminal state entered by Stop. Unlike Stopped it
	// is never a valid Start precondition, so a stopped tailer stays inert.
	Terminated
)

// Tailer follows one file and inserts an entry per appended line. A tailer
// runs at most once; after Stop it is permanently inert.
type Tailer struct {
	path     string
	name     string
	writer   model.EntryWriter
	interval time.Duration

	state    atomic.Int32
	cursor   int64
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a tailer for path. name is the category applied to emitted
// entries; empty defaults to the file's base name. A zero interval uses
// DefaultPollInterval.
func New(path, name string, writer model.EntryWriter, interval time.Duration) *Tailer {
	if name == "" {
		name = filepath.Base(path)
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Tailer{
		path:     path,
		name:     name,
		writer:   writer,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Path returns the tailed file path.
func (t *Tailer) Path() string { return t.path }

// Name returns the display name used as the entry category.
func (t *Tailer) Name() string { return t.name }

// Running reports whether the monitor loop is live.
func (t *Tailer) Running() bool { return State(t.state.Load()) == Running }

// Start begins tailing from the file's current end. The path must exist at
// start time; a missing path is an immediate error and the tailer stays
// Stopped.
func (t *Tailer) Start() error {
	if !t.state.CompareAndSwap(int32(Stopped), int32(Starting)) {
		return fmt.Errorf("tailer for %s already started or stopped", t.path)
	}

	info, err := os.Stat(t.path)
	if err != nil {
		t.state.Store(int32(Stopped))
		serverlog.Errorf("file-tailer", "cannot tail %s: %v", t.path, err)
		return fmt.Errorf("tail %s: %w", t.path, err)
	}
	t.cursor = info.Size()
	t.state.Store(int32(Running))

	t.wg.Add(1)
	go t.monitorLoop()

	serverlog.Logf("file-tailer", "tailing %s from offset %d", t.path, t.cursor)
	return nil
}

func (t *Tailer) monitorLoop() {
	defer t.wg.Done()

	for {
		select {
		case <-t.done:
			return
		case <-time.After(t.interval):
		}

		info, err := os.Stat(t.path)
		if err != nil {
			if !os.IsNotExist(err) {
				serverlog.Errorf("file-tailer", "stat %s: %v", t.path, err)
			}
			// Transient absence (rotation in progress) or fs error:
			// back off and retry, never fatal.
			select {
			case <-t.done:
				return
			case <-time.After(missingFileRetry):
			}
			continue
		}

		size := info.Size()
		switch {
		case size < t.cursor:
			serverlog.Logf("file-tailer", "%s shrank (%d -> %d), restarting from beginning", t.path, t.cursor, size)
			t.cursor = 0
		case size > t.cursor:
			t.readNewLines(size)
		}
	}
}

// readNewLines reads complete lines between the cursor and end, emitting
// one entry per non-empty line. A trailing partial line is left for the
// next poll.
func (t *Tailer) readNewLines(end int64) {
	f, err := os.Open(t.path)
	if err != nil {
		serverlog.Errorf("file-tailer", "open %s: %v", t.path, err)
		return
	}
	defer f.Close()

	if _, err := f.Seek(t.cursor, io.SeekStart); err != nil {
		serverlog.Errorf("file-tailer", "seek %s: %v", t.path, err)
		t.cursor = end
		return
	}

	reader := bufio.NewReader(io.LimitReader(f, end-t.cursor))
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				serverlog.Errorf("file-tailer", "read %s: %v", t.path, err)
				t.cursor = end
			}
			// Partial trailing line: leave the cursor before it.
			return
		}
		t.cursor += int64(len(line))
		t.emit(strings.TrimRight(line, "\r\n"))
	}
}

func (t *Tailer) emit(line string) {
	if line == "" {
		return
	}
	now := wallClock()
	entry := &model.LogEntry{
		Source:     "file-tailer",
		Category:   t.name,
		Verbosity:  model.Log,
		Message:    line,
		Timestamp:  now,
		ReceivedAt: now,
	}
	if _, err := t.writer.Insert(entry); err != nil {
		serverlog.Errorf("file-tailer", "insert from %s failed: %v", t.path, err)
	}
}

// Stop signals the monitor loop and waits for it to exit. Idempotent; a
// stopped tailer cannot be restarted.
func (t *Tailer) Stop() {
	t.stopOnce.Do(func() {
		wasRunning := t.state.Swap(int32(Terminated)) == int32(Running)
		close(t.done)
		t.wg.Wait()
		if wasRunning {
			serverlog.Logf("file-tailer", "stopped tailing %s", t.path)
		}
	})
}

// wallClock is the tailer clock in float seconds, overridable in tests.
var wallClock = func() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
