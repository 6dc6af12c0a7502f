package model

import (
	"encoding/json"
	"strings"
)

// Verbosity is the ordered severity of a log entry. Lower numeric values
// are more severe, mirroring Unreal Engine's ELogVerbosity.
type Verbosity int

const (
	NoLogging   Verbosity = 0 // reserved: "no logging", never stored
	Fatal       Verbosity = 1
	Error       Verbosity = 2
	Warning     Verbosity = 3
	Display     Verbosity = 4
	Log         Verbosity = 5
	Verbose     Verbosity = 6
	VeryVerbose Verbosity = 7
)

var verbosityNames = map[Verbosity]string{
	NoLogging:   "NoLogging",
	Fatal:       "Fatal",
	Error:       "Error",
	Warning:     "Warning",
	Display:     "Display",
	Log:         "Log",
	Verbose:     "Verbose",
	VeryVerbose: "VeryVerbose",
}

// String returns the canonical wire name for v, or "Unknown" for
// out-of-range values.
func (v Verbosity) String() string {
	if name, ok := verbosityNames[v]; ok {
		return name
	}
	return "Unknown"
}

// ParseVerbosity converts a wire-format verbosity name to its numeric level.
// Matching is case-insensitive and tolerant of common aliases; anything
// unrecognized parses as Log, the wire-format default.
func ParseVerbosity(s string) Verbosity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nologging":
		return NoLogging
	case "fatal", "critical":
		return Fatal
	case "error", "err":
		return Error
	case "warning", "warn":
		return Warning
	case "display":
		return Display
	case "log", "info":
		return Log
	case "verbose":
		return Verbose
	case "veryverbose":
		return VeryVerbose
	default:
		return Log
	}
}

// MarshalJSON encodes the verbosity as its wire name.
func (v Verbosity) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON accepts either a wire name or a bare numeric level.
func (v *Verbosity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*v = ParseVerbosity(name)
		return nil
	}
	var num int
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	if num < int(NoLogging) || num > int(VeryVerbose) {
		*v = Log
		return nil
	}
	*v = Verbosity(num)
	return nil
}
