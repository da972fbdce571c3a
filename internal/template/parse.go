package template

import (
	"fmt"

	apperrors "github.com/promptweaver/promptweaver/internal/errors"
	"github.com/promptweaver/promptweaver/internal/models"
)

// parsePlaceholder parses {Name} or {Name[selector]} starting at the
// opening brace. It returns the consumed rune count including the
// closing brace.
func parsePlaceholder(runes []rune) (string, models.Selector, int, error) {
	sel := models.DefaultSelector()

	j := 1
	for j < len(runes) && (isIdentRune(runes[j]) || runes[j] == '.') {
		j++
	}
	name := string(runes[1:j])
	if name == "" {
		return "", sel, 0, apperrors.SelectorError(snippet(runes),
			"expected a placeholder name after {")
	}

	if j < len(runes) && runes[j] == '[' {
		end := j + 1
		for end < len(runes) && runes[end] != ']' {
			end++
		}
		if end == len(runes) {
			return "", sel, 0, apperrors.SelectorError(snippet(runes),
				fmt.Sprintf("unclosed selector on placeholder %q", name))
		}
		parsed, err := ParseSelector(string(runes[j+1 : end]))
		if err != nil {
			return "", sel, 0, err
		}
		sel = parsed
		j = end + 1
	}

	if j >= len(runes) || runes[j] != '}' {
		return "", sel, 0, apperrors.SelectorError(snippet(runes),
			fmt.Sprintf("unclosed placeholder %q", name))
	}
	return name, sel, j + 1, nil
}

// chunkParam is one Key: Expr override of a parameterized chunk call.
// The expression references a placeholder, optionally with a selector.
type chunkParam struct {
	key      string
	ref      string
	selector models.Selector
}

type chunkCall struct {
	name   string
	params []chunkParam
}

// parseChunkCall parses @{Name with Key: Expr, Key2: Expr} starting at
// the @. The parameter list may be empty: @{Name} is the simple form
// spelled explicitly.
func parseChunkCall(runes []rune) (chunkCall, int, error) {
	var call chunkCall
	i := 2 // past "@{"

	i = skipSpaces(runes, i)
	name, i := scanDottedIdent(runes, i)
	if name == "" {
		return call, 0, apperrors.SelectorError(snippet(runes), "expected a chunk name after @{")
	}
	call.name = name

	i = skipSpaces(runes, i)
	if i < len(runes) && runes[i] == '}' {
		return call, i + 1, nil
	}

	keyword, i := scanDottedIdent(runes, i)
	if keyword != "with" {
		return call, 0, apperrors.SelectorError(snippet(runes),
			fmt.Sprintf("expected 'with' in chunk call @{%s ...}", name))
	}

	for {
		i = skipSpaces(runes, i)
		key, next := scanDottedIdent(runes, i)
		if key == "" {
			return call, 0, apperrors.SelectorError(snippet(runes),
				fmt.Sprintf("expected a parameter name in chunk call @{%s ...}", name))
		}
		i = skipSpaces(runes, next)
		if i >= len(runes) || runes[i] != ':' {
			return call, 0, apperrors.SelectorError(snippet(runes),
				fmt.Sprintf("expected ':' after parameter %q", key))
		}
		i = skipSpaces(runes, i+1)

		ref, next := scanDottedIdent(runes, i)
		if ref == "" {
			return call, 0, apperrors.SelectorError(snippet(runes),
				fmt.Sprintf("expected a placeholder reference after %q:", key))
		}
		i = next

		sel := models.DefaultSelector()
		if i < len(runes) && runes[i] == '[' {
			end := i + 1
			for end < len(runes) && runes[end] != ']' {
				end++
			}
			if end == len(runes) {
				return call, 0, apperrors.SelectorError(snippet(runes),
					fmt.Sprintf("unclosed selector on parameter %q", key))
			}
			parsed, err := ParseSelector(string(runes[i+1 : end]))
			if err != nil {
				return call, 0, err
			}
			sel = parsed
			i = end + 1
		}

		call.params = append(call.params, chunkParam{key: key, ref: ref, selector: sel})

		i = skipSpaces(runes, i)
		if i < len(runes) && runes[i] == ',' {
			i++
			continue
		}
		break
	}

	if i >= len(runes) || runes[i] != '}' {
		return call, 0, apperrors.SelectorError(snippet(runes),
			fmt.Sprintf("unclosed chunk call @{%s ...}", name))
	}
	return call, i + 1, nil
}

func scanDottedIdent(runes []rune, i int) (string, int) {
	if i >= len(runes) || !isIdentStart(runes[i]) {
		return "", i
	}
	start := i
	for i < len(runes) && (isIdentRune(runes[i]) || runes[i] == '.') {
		i++
	}
	return string(runes[start:i]), i
}

func skipSpaces(runes []rune, i int) int {
	for i < len(runes) && (runes[i] == ' ' || runes[i] == '\t') {
		i++
	}
	return i
}

// snippet shortens the remaining text for error messages.
func snippet(runes []rune) string {
	const max = 32
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return string(runes)
}

// Ref is one reference found in a template string, without resolving it.
type Ref struct {
	Name    string
	IsChunk bool
}

// ExtractRefs scans a template string and reports every placeholder and
// chunk reference it contains, plus any syntax errors. The validator's
// template-consistency phase uses it to report unresolvable placeholders
// without running a full resolution.
func ExtractRefs(text string) ([]Ref, []error) {
	var refs []Ref
	var errs []error

	runes := []rune(text)
	i := 0
	for i < len(runes) {
		switch runes[i] {
		case '{':
			name, _, consumed, err := parsePlaceholder(runes[i:])
			if err != nil {
				errs = append(errs, err)
				i++
				continue
			}
			refs = append(refs, Ref{Name: name})
			i += consumed

		case '@':
			if i+1 < len(runes) && runes[i+1] == '{' {
				call, consumed, err := parseChunkCall(runes[i:])
				if err != nil {
					errs = append(errs, err)
					i++
					continue
				}
				refs = append(refs, Ref{Name: call.name, IsChunk: true})
				for _, p := range call.params {
					refs = append(refs, Ref{Name: p.ref})
				}
				i += consumed
				continue
			}
			if i+1 < len(runes) && isIdentStart(runes[i+1]) {
				name, next := scanDottedIdent(runes, i+1)
				refs = append(refs, Ref{Name: name, IsChunk: true})
				i = next
				continue
			}
			i++

		default:
			i++
		}
	}
	return refs, errs
}
