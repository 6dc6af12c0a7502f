package search

import (
	"strings"
	"unicode"
)

// TokenType identifies a lexical token in a search query.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenTerm
	TokenPhrase
	TokenLParen
	TokenRParen
	TokenAnd
	TokenOr
	TokenNot
)

// Token is one lexical token.
type Token struct {
	Type  TokenType
	Value string
}

// Lexer tokenizes search query input.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a Lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF}
	}

	switch l.input[l.pos] {
	case '(':
		l.pos++
		return Token{Type: TokenLParen, Value: "("}
	case ')':
		l.pos++
		return Token{Type: TokenRParen, Value: ")"}
	case '"':
		return l.readPhrase()
	}

	return l.readTerm()
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func (l *Lexer) readPhrase() Token {
	l.pos++ // opening quote
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != '"' {
		l.pos++
	}
	value := l.input[start:l.pos]
	if l.pos < len(l.input) {
		l.pos++ // closing quote
	}
	return Token{Type: TokenPhrase, Value: value}
}

func (l *Lexer) readTerm() Token {
	start := l.pos
	for l.pos < len(l.input) && !isTermBoundary(l.input[l.pos]) {
		l.pos++
	}
	value := l.input[start:l.pos]

	switch strings.ToUpper(value) {
	case "AND":
		return Token{Type: TokenAnd, Value: "AND"}
	case "OR":
		return Token{Type: TokenOr, Value: "OR"}
	case "NOT":
		return Token{Type: TokenNot, Value: "NOT"}
	}

	return Token{Type: TokenTerm, Value: value}
}

func isTermBoundary(ch byte) bool {
	return unicode.IsSpace(rune(ch)) || ch == '(' || ch == ')' || ch == '"'
}
