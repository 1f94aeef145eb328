package pgforge

// clause.go validates caller-supplied filter clauses before they are
// interpolated into SQL text. The clause string is the injection-risk
// surface here: unlike parameter values it is spliced into the statement
// verbatim, so anything outside a small comparison grammar is rejected.
//
// Grammar:
//
//	expr := term ((AND | OR) term)*
//	term := operand OP operand
//	      | operand BETWEEN operand AND operand
//	      | operand [NOT] IN '(' operand (',' operand)* ')'
//
// The AND inside a BETWEEN range belongs to the term, not to the
// expression, so "a BETWEEN 1 AND 2 AND b = 3" parses as two terms.

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pgforge/pgforge/pkg/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokOp // symbolic comparison operator
	tokAnd
	tokOr
	tokNot
	tokIn
	tokLike
	tokBetween
	tokLParen
	tokRParen
	tokComma
)

type clauseToken struct {
	kind tokenKind
	text string
	pos  int
}

// permittedOps is the comparison operator whitelist. Anything else,
// including "<>", is rejected.
var permittedOps = map[string]bool{
	"=":  true,
	">":  true,
	"<":  true,
	"<=": true,
	">=": true,
	"!=": true,
}

// ValidateClause checks that clause is composed solely of permitted
// comparison operators joined by AND/OR. It returns an InvalidClauseError
// for anything else and performs no I/O.
func ValidateClause(clause string) error {
	if strings.TrimSpace(clause) == "" {
		return errors.NewInvalidClauseError(clause, "clause must not be empty", 0)
	}
	toks, err := lexClause(clause)
	if err != nil {
		return err
	}
	p := &clauseParser{clause: clause, toks: toks}
	if err := p.expr(); err != nil {
		return err
	}
	if p.peek().kind != tokEOF {
		return p.errf(p.peek().pos, "unexpected %q after complete clause", p.peek().text)
	}
	return nil
}

func lexClause(clause string) ([]clauseToken, error) {
	var toks []clauseToken
	i := 0
	for i < len(clause) {
		c := clause[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, clauseToken{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, clauseToken{tokRParen, ")", i})
			i++
		case c == ',':
			toks = append(toks, clauseToken{tokComma, ",", i})
			i++
		case c == '"':
			end := strings.IndexByte(clause[i+1:], '"')
			if end < 0 {
				return nil, errors.NewInvalidClauseError(clause, "unterminated quoted identifier", i)
			}
			toks = append(toks, clauseToken{tokIdent, clause[i : i+end+2], i})
			i += end + 2
		case c == '\'':
			// single quotes escape by doubling
			j := i + 1
			for {
				next := strings.IndexByte(clause[j:], '\'')
				if next < 0 {
					return nil, errors.NewInvalidClauseError(clause, "unterminated string literal", i)
				}
				j += next + 1
				if j < len(clause) && clause[j] == '\'' {
					j++
					continue
				}
				break
			}
			toks = append(toks, clauseToken{tokString, clause[i:j], i})
			i = j
		case c == '=':
			toks = append(toks, clauseToken{tokOp, "=", i})
			i++
		case c == '!':
			if i+1 < len(clause) && clause[i+1] == '=' {
				toks = append(toks, clauseToken{tokOp, "!=", i})
				i += 2
			} else {
				return nil, errors.NewInvalidClauseError(clause, "unexpected '!'", i)
			}
		case c == '<' || c == '>':
			op := string(c)
			if i+1 < len(clause) {
				switch clause[i+1] {
				case '=':
					op += "="
				case '>', '<':
					return nil, errors.NewInvalidClauseError(clause,
						"operator '"+string(c)+string(clause[i+1])+"' is not permitted", i)
				}
			}
			toks = append(toks, clauseToken{tokOp, op, i})
			i += len(op)
		case c == '-':
			if i+1 < len(clause) && clause[i+1] == '-' {
				return nil, errors.NewInvalidClauseError(clause, "comment sequence '--' is not permitted", i)
			}
			if i+1 >= len(clause) || !isDigit(clause[i+1]) {
				return nil, errors.NewInvalidClauseError(clause, "unexpected '-'", i)
			}
			start := i
			i++
			for i < len(clause) && (isDigit(clause[i]) || clause[i] == '.') {
				i++
			}
			toks = append(toks, clauseToken{tokNumber, clause[start:i], start})
		case isDigit(c):
			start := i
			for i < len(clause) && (isDigit(clause[i]) || clause[i] == '.') {
				i++
			}
			toks = append(toks, clauseToken{tokNumber, clause[start:i], start})
		case isIdentStart(rune(c)):
			start := i
			for i < len(clause) && isIdentPart(rune(clause[i])) {
				i++
			}
			word := clause[start:i]
			toks = append(toks, clauseToken{keywordKind(word), word, start})
		default:
			return nil, errors.NewInvalidClauseError(clause, "disallowed character '"+string(c)+"'", i)
		}
	}
	toks = append(toks, clauseToken{tokEOF, "", len(clause)})
	return toks, nil
}

func keywordKind(word string) tokenKind {
	switch strings.ToUpper(word) {
	case "AND":
		return tokAnd
	case "OR":
		return tokOr
	case "NOT":
		return tokNot
	case "IN":
		return tokIn
	case "LIKE":
		return tokLike
	case "BETWEEN":
		return tokBetween
	default:
		return tokIdent
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '.' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

type clauseParser struct {
	clause string
	toks   []clauseToken
	i      int
}

func (p *clauseParser) peek() clauseToken { return p.toks[p.i] }

func (p *clauseParser) next() clauseToken {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *clauseParser) errf(pos int, format string, args ...any) error {
	return errors.NewInvalidClauseError(p.clause, fmt.Sprintf(format, args...), pos)
}

// expr := term ((AND | OR) term)*
func (p *clauseParser) expr() error {
	if err := p.term(); err != nil {
		return err
	}
	for p.peek().kind == tokAnd || p.peek().kind == tokOr {
		p.next()
		if err := p.term(); err != nil {
			return err
		}
	}
	return nil
}

// term parses one predicate and enforces that it contains exactly one
// recognized operator.
func (p *clauseParser) term() error {
	if err := p.operand(); err != nil {
		return err
	}

	opTok := p.peek()
	switch opTok.kind {
	case tokOp:
		if !permittedOps[opTok.text] {
			return p.errf(opTok.pos, "operator %q is not permitted", opTok.text)
		}
		p.next()
		if err := p.operand(); err != nil {
			return err
		}
	case tokLike:
		p.next()
		if err := p.operand(); err != nil {
			return err
		}
	case tokBetween:
		p.next()
		if err := p.operand(); err != nil {
			return err
		}
		// this AND is part of BETWEEN's own syntax, not a new connector
		if and := p.next(); and.kind != tokAnd {
			return p.errf(and.pos, "BETWEEN requires AND between its bounds")
		}
		if err := p.operand(); err != nil {
			return err
		}
	case tokIn:
		p.next()
		if err := p.operandList(); err != nil {
			return err
		}
	case tokNot:
		p.next()
		if in := p.next(); in.kind != tokIn {
			return p.errf(in.pos, "NOT must be followed by IN")
		}
		if err := p.operandList(); err != nil {
			return err
		}
	default:
		return p.errf(opTok.pos, "segment is missing a comparison operator")
	}

	// a second operator in the same segment is ambiguous
	switch p.peek().kind {
	case tokOp, tokLike, tokBetween, tokIn, tokNot:
		return p.errf(p.peek().pos, "more than one comparison operator in segment")
	}
	return nil
}

func (p *clauseParser) operand() error {
	switch t := p.peek(); t.kind {
	case tokIdent, tokString, tokNumber:
		p.next()
		return nil
	default:
		return p.errf(t.pos, "expected operand, found %q", t.text)
	}
}

// operandList parses the parenthesized value list of IN / NOT IN.
func (p *clauseParser) operandList() error {
	if t := p.next(); t.kind != tokLParen {
		return p.errf(t.pos, "IN requires a parenthesized value list")
	}
	if err := p.operand(); err != nil {
		return err
	}
	for p.peek().kind == tokComma {
		p.next()
		if err := p.operand(); err != nil {
			return err
		}
	}
	if t := p.next(); t.kind != tokRParen {
		return p.errf(t.pos, "unterminated IN value list")
	}
	return nil
}
