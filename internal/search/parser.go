package search

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyQuery is returned when the query contains no matchable terms.
var ErrEmptyQuery = errors.New("search: empty query")

// Parser parses search queries into an AST.
type Parser struct {
	lexer   *Lexer
	current Token
}

// Parse parses the input and returns the AST root.
func Parse(input string) (Node, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyQuery
	}
	p := &Parser{lexer: NewLexer(input)}
	p.advance()
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenEOF {
		return nil, fmt.Errorf("search: unexpected %q", p.current.Value)
	}
	if node == nil {
		return nil, ErrEmptyQuery
	}
	return node, nil
}

func (p *Parser) advance() {
	p.current = p.lexer.NextToken()
}

// parseOr handles OR expressions (lowest precedence).
func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current.Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "OR", Left: left, Right: right}
	}

	return left, nil
}

// parseAnd handles explicit AND plus the implicit AND between adjacent
// terms ("player spawned" unquoted means player AND spawned).
func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current.Type {
		case TokenAnd:
			p.advance()
		case TokenTerm, TokenPhrase, TokenNot, TokenLParen:
			// implicit AND
		default:
			return left, nil
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "AND", Left: left, Right: right}
	}
}

// parseNot handles NOT; right-associative so "NOT NOT x" nests.
func (p *Parser) parseNot() (Node, error) {
	if p.current.Type == TokenNot {
		p.advance()
		expr, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return NotExpr{Expr: expr}, nil
	}
	return p.parsePrimary()
}

// parsePrimary handles (expr), quoted phrases, and bare terms.
func (p *Parser) parsePrimary() (Node, error) {
	switch p.current.Type {
	case TokenLParen:
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.current.Type != TokenRParen {
			return nil, fmt.Errorf("search: expected ')' but got %q", p.current.Value)
		}
		p.advance()
		return expr, nil

	case TokenPhrase:
		value := p.current.Value
		p.advance()
		if strings.TrimSpace(value) == "" {
			return nil, ErrEmptyQuery
		}
		return PhraseExpr{Text: value}, nil

	case TokenTerm:
		value := p.current.Value
		p.advance()
		if stem, ok := strings.CutSuffix(value, "*"); ok {
			if stem == "" {
				return nil, errors.New("search: bare '*' is not a valid term")
			}
			return TermExpr{Text: stem, Prefix: true}, nil
		}
		return TermExpr{Text: value}, nil

	case TokenEOF:
		return nil, ErrEmptyQuery

	default:
		return nil, fmt.Errorf("search: unexpected token %q", p.current.Value)
	}
}
