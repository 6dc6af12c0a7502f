package search

import (
	"regexp"
	"testing"
)

func TestCompileTerm(t *testing.T) {
	clause, args, err := Compile("overlap", "message")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if clause != "regexp_matches(message, ?, 'i')" {
		t.Errorf("clause = %q", clause)
	}
	if len(args) != 1 || args[0] != `\boverlap\b` {
		t.Errorf("args = %v", args)
	}
}

func TestCompilePrefixTerm(t *testing.T) {
	_, args, err := Compile("spawn*", "message")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(args) != 1 || args[0] != `\bspawn` {
		t.Errorf("args = %v", args)
	}
}

func TestCompilePhrase(t *testing.T) {
	_, args, err := Compile(`"connection  timed out"`, "message")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(args) != 1 || args[0] != `\bconnection\s+timed\s+out\b` {
		t.Errorf("args = %v", args)
	}
}

func TestCompileBoolean(t *testing.T) {
	clause, args, err := Compile("error AND NOT (timeout OR retry)", "message")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := "(regexp_matches(message, ?, 'i') AND NOT ((regexp_matches(message, ?, 'i') OR regexp_matches(message, ?, 'i'))))"
	if clause != want {
		t.Errorf("clause = %q\nwant     %q", clause, want)
	}
	if len(args) != 3 {
		t.Fatalf("args = %v, want 3 patterns", args)
	}
}

func TestCompileEscapesMetaChars(t *testing.T) {
	_, args, err := Compile("a.b+c", "message")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	pattern := args[0].(string)
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		t.Fatalf("pattern %q does not compile: %v", pattern, err)
	}
	if !re.MatchString("found a.b+c here") {
		t.Errorf("pattern %q should match the literal text", pattern)
	}
	if re.MatchString("found aXb+c here") {
		t.Errorf("pattern %q must not treat '.' as a wildcard", pattern)
	}
}

func TestCompilePatternsMatchLikeDuckDB(t *testing.T) {
	// DuckDB's regexp_matches uses RE2 syntax, same as Go's regexp, so the
	// compiled patterns can be validated locally.
	tests := []struct {
		query   string
		message string
		match   bool
	}{
		{"overlap", "Actor overlap detected", true},
		{"overlap", "overlapping volumes", false},
		{"overlap*", "overlapping volumes", true},
		{"OVERLAP", "actor overlap", true},
		{`"timed out"`, "connection timed   out after 30s", true},
		{`"timed out"`, "out of time", false},
	}
	for _, tt := range tests {
		_, args, err := Compile(tt.query, "message")
		if err != nil {
			t.Fatalf("Compile(%q): %v", tt.query, err)
		}
		re := regexp.MustCompile("(?i)" + args[0].(string))
		if got := re.MatchString(tt.message); got != tt.match {
			t.Errorf("query %q on %q: match = %v, want %v", tt.query, tt.message, got, tt.match)
		}
	}
}

func TestCompileEmptyQuery(t *testing.T) {
	if _, _, err := Compile("   ", "message"); err == nil {
		t.Fatal("Compile should fail on a blank query")
	}
}
