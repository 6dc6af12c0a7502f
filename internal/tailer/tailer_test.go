package tailer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/uelogd/uelogd/internal/model"
)

type captureWriter struct {
	entries chan model.LogEntry
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{entries: make(chan model.LogEntry, 64)}
}

func (w *captureWriter) Insert(entry *model.LogEntry) (int64, error) {
	w.entries <- *entry
	return 1, nil
}

func (w *captureWriter) next(t *testing.T) model.LogEntry {
	t.Helper()
	select {
	case e := <-w.entries:
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for entry")
		return model.LogEntry{}
	}
}

func (w *captureWriter) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case e := <-w.entries:
		t.Fatalf("unexpected entry: %q", e.Message)
	case <-time.After(wait):
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append %s: %v", path, err)
	}
}

func startTailer(t *testing.T, path, name string, writer *captureWriter) *Tailer {
	t.Helper()
	tl := New(path, name, writer, 20*time.Millisecond)
	if err := tl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(tl.Stop)
	return tl
}

func TestStartFailsOnMissingPath(t *testing.T) {
	writer := newCaptureWriter()
	tl := New(filepath.Join(t.TempDir(), "absent.log"), "", writer, 20*time.Millisecond)

	if err := tl.Start(); err == nil {
		t.Fatal("Start on missing path should fail")
	}
	if tl.Running() {
		t.Error("tailer must stay stopped after failed start")
	}
}

func TestTailsFromEndOfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, "old line one\nold line two\n")
	writer := newCaptureWriter()
	startTailer(t, path, "", writer)

	// Pre-existing content is never replayed.
	writer.expectNone(t, 100*time.Millisecond)

	appendFile(t, path, "fresh line\n")
	e := writer.next(t)
	if e.Message != "fresh line" {
		t.Errorf("message = %q, want fresh line", e.Message)
	}
}

func TestEntryShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	writeFile(t, path, "")
	writer := newCaptureWriter()
	startTailer(t, path, "GameServer", writer)

	appendFile(t, path, "hello\n")
	e := writer.next(t)
	if e.Source != "file-tailer" {
		t.Errorf("source = %q, want file-tailer", e.Source)
	}
	if e.Category != "GameServer" {
		t.Errorf("category = %q, want GameServer", e.Category)
	}
	if e.Verbosity != model.Log {
		t.Errorf("verbosity = %v, want Log", e.Verbosity)
	}
	if e.Timestamp == 0 || e.Timestamp != e.ReceivedAt {
		t.Errorf("timestamp = %v, received_at = %v, want equal wall-clock", e.Timestamp, e.ReceivedAt)
	}
}

func TestNameDefaultsToBaseName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combat.log")
	writeFile(t, path, "")
	writer := newCaptureWriter()
	startTailer(t, path, "", writer)

	appendFile(t, path, "swing\n")
	if e := writer.next(t); e.Category != "combat.log" {
		t.Errorf("category = %q, want combat.log", e.Category)
	}
}

func TestSkipsEmptyLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, "")
	writer := newCaptureWriter()
	startTailer(t, path, "", writer)

	appendFile(t, path, "one\n\n\ntwo\n")
	if e := writer.next(t); e.Message != "one" {
		t.Errorf("first message = %q, want one", e.Message)
	}
	if e := writer.next(t); e.Message != "two" {
		t.Errorf("second message = %q, want two", e.Message)
	}
}

func TestPartialLineWaitsForNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, "")
	writer := newCaptureWriter()
	startTailer(t, path, "", writer)

	appendFile(t, path, "no newline yet")
	writer.expectNone(t, 100*time.Millisecond)

	appendFile(t, path, " done\n")
	if e := writer.next(t); e.Message != "no newline yet done" {
		t.Errorf("message = %q", e.Message)
	}
}

func TestTruncationResetsCursor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotating.log")
	writeFile(t, path, "a long stretch of pre-existing content to move the cursor well past zero\n")
	writer := newCaptureWriter()
	startTailer(t, path, "", writer)

	// Truncate to something much smaller than the cursor, then append.
	writeFile(t, path, "tiny\n")

	e := writer.next(t)
	if e.Message != "tiny" {
		t.Errorf("message = %q, want full new content from offset 0", e.Message)
	}
}

func TestToleratesTransientAbsence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotated.log")
	writeFile(t, path, "")
	writer := newCaptureWriter()
	startTailer(t, path, "", writer)

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// Recreate after the missing-file backoff kicks in.
	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, "back again\n")

	if e := writer.next(t); e.Message != "back again" {
		t.Errorf("message = %q, want back again", e.Message)
	}
}

func TestStopIsIdempotentAndFinal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, "")
	writer := newCaptureWriter()
	tl := startTailer(t, path, "", writer)

	tl.Stop()
	tl.Stop()
	if tl.Running() {
		t.Error("tailer still running after Stop")
	}
	if err := tl.Start(); err == nil {
		t.Error("a stopped tailer must not restart")
	}
	if tl.Running() {
		t.Error("tailer reports running after a rejected restart")
	}
}

func TestStopBeforeStartLeavesTailerInert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, "")
	writer := newCaptureWriter()
	tl := New(path, "", writer, 20*time.Millisecond)

	tl.Stop()
	if err := tl.Start(); err == nil {
		t.Error("Start after Stop should fail even when never started")
	}
	if tl.Running() {
		t.Error("tailer reports running after Stop-then-Start")
	}
}
