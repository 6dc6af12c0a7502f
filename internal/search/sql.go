package search

import (
	"fmt"
	"regexp"
	"strings"
)

// Compile parses a search query and returns a SQL predicate over the given
// column plus its bound arguments. Matching is whole-word and
// case-insensitive, evaluated by DuckDB's regexp_matches so results are
// always consistent with the live table contents.
func Compile(query, column string) (clause string, args []any, err error) {
	node, err := Parse(query)
	if err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	args = compileNode(node, column, &sb, nil)
	return sb.String(), args, nil
}

func compileNode(node Node, column string, sb *strings.Builder, args []any) []any {
	switch n := node.(type) {
	case BinaryExpr:
		sb.WriteString("(")
		args = compileNode(n.Left, column, sb, args)
		fmt.Fprintf(sb, " %s ", n.Op)
		args = compileNode(n.Right, column, sb, args)
		sb.WriteString(")")
		return args

	case NotExpr:
		sb.WriteString("NOT (")
		args = compileNode(n.Expr, column, sb, args)
		sb.WriteString(")")
		return args

	case TermExpr:
		fmt.Fprintf(sb, "regexp_matches(%s, ?, 'i')", column)
		pattern := `\b` + regexp.QuoteMeta(n.Text)
		if !n.Prefix {
			pattern += `\b`
		}
		return append(args, pattern)

	case PhraseExpr:
		fmt.Fprintf(sb, "regexp_matches(%s, ?, 'i')", column)
		// Collapse runs of whitespace so a phrase matches regardless of
		// spacing in the original message.
		words := strings.Fields(n.Text)
		escaped := make([]string, len(words))
		for i, w := range words {
			escaped[i] = regexp.QuoteMeta(w)
		}
		pattern := `\b` + strings.Join(escaped, `\s+`) + `\b`
		return append(args, pattern)
	}
	return args
}
