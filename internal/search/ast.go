// Package search parses full-text search queries and compiles them to SQL
// predicates over the message column. The language supports bare terms
// (whole-word, case-insensitive), quoted phrases, trailing-* prefix
// wildcards, AND/OR/NOT, and parentheses; adjacent terms combine with an
// implicit AND.
package search

// Node is implemented by all query AST nodes.
type Node interface {
	node()
}

// BinaryExpr is a logical AND or OR over two subqueries.
type BinaryExpr struct {
	Op    string // "AND" or "OR"
	Left  Node
	Right Node
}

func (BinaryExpr) node() {}

// NotExpr negates its inner expression.
type NotExpr struct {
	Expr Node
}

func (NotExpr) node() {}

// TermExpr matches a single whole word. Prefix is set for trailing-*
// wildcards, in which case the term matches any word starting with Text.
type TermExpr struct {
	Text   string
	Prefix bool
}

func (TermExpr) node() {}

// PhraseExpr matches a quoted sequence of words in order.
type PhraseExpr struct {
	Text string
}

func (PhraseExpr) node() {}
