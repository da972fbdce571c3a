// Package template expands chunk references and placeholders inside a
// resolved template string. The selector mini-language and the chunk-call
// syntax are parsed with a real tokenizer and recursive descent rather
// than substring splitting, which removes the "looked like a selector but
// wasn't" class of ambiguity bugs.
package template

import (
	"fmt"
	"strconv"

	apperrors "github.com/promptweaver/promptweaver/internal/errors"
	"github.com/promptweaver/promptweaver/internal/models"
)

type tokenKind int

const (
	tokInt tokenKind = iota
	tokIdent
	tokHash
	tokDollar
	tokComma
	tokDash
	tokSemi
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lexSelector tokenizes the text between the brackets of a placeholder.
func lexSelector(expr string) ([]token, error) {
	var tokens []token
	runes := []rune(expr)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case r == ' ' || r == '\t':
			i++
		case r == '#':
			tokens = append(tokens, token{tokHash, "#", i})
			i++
		case r == '$':
			tokens = append(tokens, token{tokDollar, "$", i})
			i++
		case r == ',':
			tokens = append(tokens, token{tokComma, ",", i})
			i++
		case r == '-':
			tokens = append(tokens, token{tokDash, "-", i})
			i++
		case r == ';':
			tokens = append(tokens, token{tokSemi, ";", i})
			i++
		case r >= '0' && r <= '9':
			start := i
			for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
				i++
			}
			tokens = append(tokens, token{tokInt, string(runes[start:i]), start})
		case isIdentStart(r):
			start := i
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			tokens = append(tokens, token{tokIdent, string(runes[start:i]), start})
		default:
			return nil, apperrors.SelectorError(expr, fmt.Sprintf("unexpected character %q at position %d", r, i))
		}
	}
	tokens = append(tokens, token{tokEOF, "", len(runes)})
	return tokens, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentRune(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

// selectorParser is a tiny recursive-descent parser over the selector
// token stream.
type selectorParser struct {
	expr   string
	tokens []token
	pos    int
}

func (p *selectorParser) peek() token { return p.tokens[p.pos] }
func (p *selectorParser) next() token { t := p.tokens[p.pos]; p.pos++; return t }
func (p *selectorParser) accept(k tokenKind) bool {
	if p.tokens[p.pos].kind == k {
		p.pos++
		return true
	}
	return false
}

func (p *selectorParser) fail(format string, args ...any) error {
	return apperrors.SelectorError(p.expr, fmt.Sprintf(format, args...))
}

// ParseSelector parses a full selector expression: semicolon-separated
// clauses, each one of a bare count, an index pick, an index range, a key
// pick, or a weight assignment. At most one selection clause may appear;
// the weight clause combines freely with any of them.
func ParseSelector(expr string) (models.Selector, error) {
	sel := models.DefaultSelector()
	tokens, err := lexSelector(expr)
	if err != nil {
		return sel, err
	}
	p := &selectorParser{expr: expr, tokens: tokens}

	selections := 0
	weights := 0
	for {
		if p.peek().kind == tokEOF {
			break
		}
		isWeight, err := p.parseClause(&sel)
		if err != nil {
			return sel, err
		}
		if isWeight {
			weights++
		} else {
			selections++
		}
		if !p.accept(tokSemi) {
			break
		}
	}
	if p.peek().kind != tokEOF {
		return sel, p.fail("unexpected %q after clause", p.peek().text)
	}
	if selections > 1 {
		return sel, p.fail("at most one selection clause (count, indexes or keys) is allowed")
	}
	if weights > 1 {
		return sel, p.fail("at most one weight clause is allowed")
	}
	return sel, nil
}

func (p *selectorParser) parseClause(sel *models.Selector) (isWeight bool, err error) {
	switch t := p.next(); t.kind {
	case tokDollar:
		w := p.next()
		if w.kind != tokInt {
			return false, p.fail("weight clause needs an integer after $")
		}
		weight, _ := strconv.Atoi(w.text)
		sel.Weight = weight
		return true, nil

	case tokInt:
		limit, _ := strconv.Atoi(t.text)
		if limit <= 0 {
			return false, p.fail("random pick count must be positive, got %d", limit)
		}
		sel.Limit = &limit
		return false, nil

	case tokHash:
		return false, p.parseIndexes(sel)

	case tokIdent:
		keys := []string{t.text}
		for p.accept(tokComma) {
			k := p.next()
			if k.kind != tokIdent {
				return false, p.fail("expected candidate key after comma, got %q", k.text)
			}
			keys = append(keys, k.text)
		}
		sel.Keys = keys
		return false, nil

	default:
		return false, p.fail("unexpected %q at start of clause", t.text)
	}
}

// parseIndexes handles both the explicit list form (#i,j,k) and the
// inclusive range form (#i-j).
func (p *selectorParser) parseIndexes(sel *models.Selector) error {
	first := p.next()
	if first.kind != tokInt {
		return p.fail("expected index after #, got %q", first.text)
	}
	start, _ := strconv.Atoi(first.text)

	if p.accept(tokDash) {
		endTok := p.next()
		if endTok.kind != tokInt {
			return p.fail("expected end index after -, got %q", endTok.text)
		}
		end, _ := strconv.Atoi(endTok.text)
		if end < start {
			return p.fail("index range %d-%d is reversed", start, end)
		}
		for i := start; i <= end; i++ {
			sel.Indexes = append(sel.Indexes, i)
		}
		return nil
	}

	sel.Indexes = []int{start}
	for p.accept(tokComma) {
		t := p.next()
		if t.kind != tokInt {
			return p.fail("expected index after comma, got %q", t.text)
		}
		idx, _ := strconv.Atoi(t.text)
		sel.Indexes = append(sel.Indexes, idx)
	}
	return nil
}
