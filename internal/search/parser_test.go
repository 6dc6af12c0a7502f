package search

import (
	"errors"
	"testing"
)

func TestParseSingleTerm(t *testing.T) {
	node, err := Parse("player")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	term, ok := node.(TermExpr)
	if !ok {
		t.Fatalf("node = %T, want TermExpr", node)
	}
	if term.Text != "player" || term.Prefix {
		t.Errorf("term = %+v, want {player false}", term)
	}
}

func TestParsePrefixWildcard(t *testing.T) {
	node, err := Parse("spawn*")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	term, ok := node.(TermExpr)
	if !ok {
		t.Fatalf("node = %T, want TermExpr", node)
	}
	if term.Text != "spawn" || !term.Prefix {
		t.Errorf("term = %+v, want {spawn true}", term)
	}
}

func TestParsePhrase(t *testing.T) {
	node, err := Parse(`"connection timed out"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	phrase, ok := node.(PhraseExpr)
	if !ok {
		t.Fatalf("node = %T, want PhraseExpr", node)
	}
	if phrase.Text != "connection timed out" {
		t.Errorf("phrase = %q", phrase.Text)
	}
}

func TestParseImplicitAnd(t *testing.T) {
	node, err := Parse("player spawned")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	bin, ok := node.(BinaryExpr)
	if !ok {
		t.Fatalf("node = %T, want BinaryExpr", node)
	}
	if bin.Op != "AND" {
		t.Errorf("op = %q, want AND", bin.Op)
	}
}

func TestParsePrecedence(t *testing.T) {
	// NOT binds tighter than AND, AND tighter than OR:
	// "a AND NOT b OR c" == ((a AND (NOT b)) OR c)
	node, err := Parse("a AND NOT b OR c")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	or, ok := node.(BinaryExpr)
	if !ok || or.Op != "OR" {
		t.Fatalf("root = %#v, want OR", node)
	}
	and, ok := or.Left.(BinaryExpr)
	if !ok || and.Op != "AND" {
		t.Fatalf("or.Left = %#v, want AND", or.Left)
	}
	if _, ok := and.Right.(NotExpr); !ok {
		t.Errorf("and.Right = %#v, want NotExpr", and.Right)
	}
}

func TestParseParens(t *testing.T) {
	// Parens override precedence: "a AND (b OR c)"
	node, err := Parse("a AND (b OR c)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	and, ok := node.(BinaryExpr)
	if !ok || and.Op != "AND" {
		t.Fatalf("root = %#v, want AND", node)
	}
	if or, ok := and.Right.(BinaryExpr); !ok || or.Op != "OR" {
		t.Errorf("and.Right = %#v, want OR", and.Right)
	}
}

func TestParseKeywordsCaseInsensitive(t *testing.T) {
	node, err := Parse("a and not b")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	bin, ok := node.(BinaryExpr)
	if !ok || bin.Op != "AND" {
		t.Fatalf("root = %#v, want AND", node)
	}
	if _, ok := bin.Right.(NotExpr); !ok {
		t.Errorf("bin.Right = %#v, want NotExpr", bin.Right)
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"", "   ", `""`, "(a", "a)", "*", "AND"} {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) should fail", input)
		}
	}
	if _, err := Parse(""); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Parse(\"\") error = %v, want ErrEmptyQuery", err)
	}
}
