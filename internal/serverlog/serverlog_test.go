package serverlog

import (
	"sync"
	"testing"
)

type captured struct {
	component string
	message   string
	isError   bool
}

func captureSink(t *testing.T) *[]captured {
	t.Helper()
	var mu sync.Mutex
	lines := &[]captured{}
	SetSink(func(component, message string, isError bool) {
		mu.Lock()
		defer mu.Unlock()
		*lines = append(*lines, captured{component, message, isError})
	})
	t.Cleanup(func() { SetSink(nil) })
	return lines
}

func TestSinkReceivesFormattedLines(t *testing.T) {
	lines := captureSink(t)

	Logf("udp", "listening on %s", "127.0.0.1:9999")
	Errorf("ingestion", "failed to parse log: %s", "bad json")

	if len(*lines) != 2 {
		t.Fatalf("captured %d lines, want 2", len(*lines))
	}
	if (*lines)[0].component != "udp" || (*lines)[0].isError {
		t.Errorf("first line = %+v, want udp info line", (*lines)[0])
	}
	if (*lines)[0].message != "listening on 127.0.0.1:9999" {
		t.Errorf("first message = %q", (*lines)[0].message)
	}
	if !(*lines)[1].isError {
		t.Errorf("second line should be an error: %+v", (*lines)[1])
	}
}

func TestSetSinkNilRestoresDefault(t *testing.T) {
	SetSink(nil)
	// Must not panic writing to the console default.
	Logf("test", "back to console")
}
