// Package serverlog is the process-wide destination for operational log
// output (the server's own chatter, not ingested entries). The sink is
// swappable at runtime so an interactive display can capture output without
// restarting producers; the default writes to stdout/stderr.
package serverlog

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Sink receives one operational log line. isError distinguishes the error
// stream from the info stream.
type Sink func(component, message string, isError bool)

var (
	mu   sync.RWMutex
	sink Sink = ConsoleSink

	stdoutLog = log.New(os.Stdout, "", log.LstdFlags)
	stderrLog = log.New(os.Stderr, "", log.LstdFlags)
)

// SetSink replaces the global sink. A nil sink restores the console default.
func SetSink(s Sink) {
	mu.Lock()
	defer mu.Unlock()
	if s == nil {
		s = ConsoleSink
	}
	sink = s
}

// Logf emits an informational line attributed to component.
func Logf(component, format string, args ...any) {
	emit(component, fmt.Sprintf(format, args...), false)
}

// Errorf emits an error line attributed to component.
func Errorf(component, format string, args ...any) {
	emit(component, fmt.Sprintf(format, args...), true)
}

func emit(component, message string, isError bool) {
	mu.RLock()
	s := sink
	mu.RUnlock()
	s(component, message, isError)
}

// ConsoleSink is the default sink: "[component] message" to stdout, errors
// to stderr.
func ConsoleSink(component, message string, isError bool) {
	if isError {
		stderrLog.Printf("[%s] %s", component, message)
		return
	}
	stdoutLog.Printf("[%s] %s", component, message)
}
