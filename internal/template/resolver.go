package template

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/sahilm/fuzzy"

	apperrors "github.com/promptweaver/promptweaver/internal/errors"
	"github.com/promptweaver/promptweaver/internal/models"
)

// maxChunkDepth bounds chunk-in-chunk expansion independently of the
// cycle check, so a pathological non-cyclic tree still terminates.
const maxChunkDepth = 64

// Placeholder is one product participant: a placeholder name, its
// selector-filtered candidates, and its combinatorial weight.
type Placeholder struct {
	Name       string
	Selector   models.Selector
	Candidates *models.CandidateSet
}

// Resolved is a fully expanded template pair: chunk references are gone,
// every remaining {Name} marker has a matching Placeholder entry, and
// Placeholders keeps first-appearance order as the combination
// generator's stable tiebreak.
type Resolved struct {
	Text         string
	NegativeText string
	Placeholders []*Placeholder
}

// WeightMap returns placeholder name -> combinatorial weight.
func (r *Resolved) WeightMap() map[string]int {
	out := make(map[string]int, len(r.Placeholders))
	for _, p := range r.Placeholders {
		out[p.Name] = p.Selector.Weight
	}
	return out
}

// Resolver expands one template pair against one resolved context. The
// rng drives random-pick selectors; it is injected so fixed-seed runs
// stay reproducible.
type Resolver struct {
	ctx *models.ResolvedContext
	rng *rand.Rand
}

// NewResolver creates a resolver for one resolution run.
func NewResolver(ctx *models.ResolvedContext, rng *rand.Rand) *Resolver {
	return &Resolver{ctx: ctx, rng: rng}
}

// Resolve expands the positive and negative template strings against the
// context. Both share one placeholder accumulator, so a name used in both
// texts is substituted consistently per output.
func (r *Resolver) Resolve(positive, negative string) (*Resolved, error) {
	acc := &accumulator{byName: make(map[string]*Placeholder)}

	text, err := r.expand(positive, nil, map[string]bool{}, 0, acc)
	if err != nil {
		return nil, err
	}
	negText, err := r.expand(negative, nil, map[string]bool{}, 0, acc)
	if err != nil {
		return nil, err
	}

	return &Resolved{
		Text:         text,
		NegativeText: negText,
		Placeholders: acc.ordered,
	}, nil
}

// accumulator collects placeholders across the whole expansion,
// preserving first-appearance order.
type accumulator struct {
	ordered []*Placeholder
	byName  map[string]*Placeholder
}

// register adds a placeholder occurrence. The first occurrence's selector
// wins; a later occurrence must either be bare or agree with it.
func (a *accumulator) register(name string, sel models.Selector, candidates *models.CandidateSet) error {
	existing, ok := a.byName[name]
	if !ok {
		ph := &Placeholder{Name: name, Selector: sel, Candidates: candidates}
		a.byName[name] = ph
		a.ordered = append(a.ordered, ph)
		return nil
	}
	if sel.Equal(models.DefaultSelector()) || sel.Equal(existing.Selector) {
		return nil
	}
	return apperrors.SchemaError(apperrors.ErrCodeSchema, "",
		fmt.Sprintf("placeholder %q appears twice with conflicting selectors", name))
}

// expand walks the template text rune by rune, substituting chunk calls
// and registering placeholders. locals are chunk-call parameter
// overrides, visible only while expanding that one call.
func (r *Resolver) expand(text string, locals map[string]string, expanding map[string]bool, depth int, acc *accumulator) (string, error) {
	if depth > maxChunkDepth {
		return "", apperrors.NewAppError(apperrors.ErrCodeCircularInheritance,
			fmt.Sprintf("chunk expansion exceeded depth %d", maxChunkDepth))
	}

	var out strings.Builder
	runes := []rune(text)
	i := 0
	for i < len(runes) {
		switch runes[i] {
		case '{':
			name, sel, consumed, err := parsePlaceholder(runes[i:])
			if err != nil {
				return "", err
			}
			i += consumed
			if err := r.substitutePlaceholder(&out, name, sel, locals, acc); err != nil {
				return "", err
			}

		case '@':
			expanded, consumed, err := r.expandChunkCall(runes[i:], locals, expanding, depth, acc)
			if err != nil {
				return "", err
			}
			if consumed == 0 {
				out.WriteRune(runes[i])
				i++
				continue
			}
			i += consumed
			out.WriteString(expanded)

		default:
			out.WriteRune(runes[i])
			i++
		}
	}
	return out.String(), nil
}

// substitutePlaceholder applies the lookup order: chunk-call locals, then
// document defaults, then the placeholder's own import set. Locals and
// defaults substitute a fixed text inline; an import registers a product
// participant and leaves a canonical {Name} marker behind.
func (r *Resolver) substitutePlaceholder(out *strings.Builder, name string, sel models.Selector, locals map[string]string, acc *accumulator) error {
	if text, ok := locals[name]; ok {
		out.WriteString(text)
		return nil
	}
	if text, ok := r.ctx.Defaults[name]; ok {
		out.WriteString(text)
		return nil
	}

	set, ok := r.ctx.LookupImport(strings.Split(name, "."))
	if !ok {
		return r.unresolved(name)
	}
	filtered, err := r.applySelector(name, sel, set)
	if err != nil {
		return err
	}
	if err := acc.register(name, sel, filtered); err != nil {
		return err
	}
	out.WriteString("{" + name + "}")
	return nil
}

// applySelector narrows a candidate set to what the selector picks.
func (r *Resolver) applySelector(name string, sel models.Selector, set *models.CandidateSet) (*models.CandidateSet, error) {
	if !sel.HasSelection() {
		return set, nil
	}

	filtered := models.NewCandidateSet()
	switch {
	case sel.Limit != nil:
		n := *sel.Limit
		if n > set.Len() {
			return nil, apperrors.NewAppError(apperrors.ErrCodeIndexOutOfRange,
				fmt.Sprintf("placeholder %q: cannot pick %d of %d candidates", name, n, set.Len()))
		}
		for _, i := range r.rng.Perm(set.Len())[:n] {
			c := set.At(i)
			filtered.Add(c.Key, c.Text)
		}

	case len(sel.Indexes) > 0:
		for _, idx := range sel.Indexes {
			if idx < 0 || idx >= set.Len() {
				return nil, apperrors.NewAppError(apperrors.ErrCodeIndexOutOfRange,
					fmt.Sprintf("placeholder %q: index %d out of range (have %d candidates)", name, idx, set.Len()))
			}
			c := set.At(idx)
			filtered.Add(c.Key, c.Text)
		}

	case len(sel.Keys) > 0:
		for _, key := range sel.Keys {
			text, ok := set.Get(key)
			if !ok {
				return nil, apperrors.NewAppError(apperrors.ErrCodeUnknownKey,
					fmt.Sprintf("placeholder %q has no candidate with key %q", name, key)).
					WithDetails(fmt.Sprintf("known keys: %s", strings.Join(set.Keys(), ", ")))
			}
			filtered.Add(key, text)
		}
	}
	return filtered, nil
}

// expandChunkCall handles @Name, @group.sub and @{Name with K:Expr, ...}.
// consumed == 0 means the @ did not start a chunk call and should pass
// through as literal text.
func (r *Resolver) expandChunkCall(runes []rune, locals map[string]string, expanding map[string]bool, depth int, acc *accumulator) (string, int, error) {
	if len(runes) < 2 {
		return "", 0, nil
	}

	if runes[1] == '{' {
		return r.expandParameterizedCall(runes, locals, expanding, depth, acc)
	}
	if !isIdentStart(runes[1]) {
		return "", 0, nil
	}

	j := 1
	for j < len(runes) && (isIdentRune(runes[j]) || runes[j] == '.') {
		j++
	}
	name := string(runes[1:j])

	expanded, err := r.injectChunk(name, nil, expanding, depth, acc)
	if err != nil {
		return "", 0, err
	}
	return expanded, j, nil
}

// injectChunk substitutes a chunk's resolved template, itself recursively
// expanded against the same context. A dotted name that is not a chunk
// falls back to the import tree and behaves like a bare placeholder.
func (r *Resolver) injectChunk(name string, locals map[string]string, expanding map[string]bool, depth int, acc *accumulator) (string, error) {
	if chunk, ok := r.ctx.Chunks[name]; ok {
		if expanding[name] {
			return "", apperrors.NewAppError(apperrors.ErrCodeCircularInheritance,
				fmt.Sprintf("chunk expansion cycle through %q", name))
		}
		expanding[name] = true
		expanded, err := r.expand(chunk.Text, locals, expanding, depth+1, acc)
		delete(expanding, name)
		return expanded, err
	}

	if set, ok := r.ctx.LookupImport(strings.Split(name, ".")); ok {
		var out strings.Builder
		filtered, err := r.applySelector(name, models.DefaultSelector(), set)
		if err != nil {
			return "", err
		}
		if err := acc.register(name, models.DefaultSelector(), filtered); err != nil {
			return "", err
		}
		out.WriteString("{" + name + "}")
		return out.String(), nil
	}

	return "", r.unresolved(name)
}

// expandParameterizedCall parses @{Name with Key: Expr, Key2: Expr}. Each
// expression is a placeholder-with-selector reference evaluated eagerly;
// its text becomes a local override visible only inside this one call.
func (r *Resolver) expandParameterizedCall(runes []rune, locals map[string]string, expanding map[string]bool, depth int, acc *accumulator) (string, int, error) {
	call, consumed, err := parseChunkCall(runes)
	if err != nil {
		return "", 0, err
	}

	callLocals := make(map[string]string, len(call.params))
	for _, p := range call.params {
		text, err := r.evaluateExpr(p, locals)
		if err != nil {
			return "", 0, err
		}
		callLocals[p.key] = text
	}

	expanded, err := r.injectChunk(call.name, callLocals, expanding, depth, acc)
	if err != nil {
		return "", 0, err
	}
	return expanded, consumed, nil
}

// evaluateExpr resolves one chunk-call parameter expression to concrete
// text. Multiple selected candidates join as a comma list.
func (r *Resolver) evaluateExpr(p chunkParam, locals map[string]string) (string, error) {
	if text, ok := locals[p.ref]; ok {
		return text, nil
	}
	if text, ok := r.ctx.Defaults[p.ref]; ok {
		return text, nil
	}
	set, ok := r.ctx.LookupImport(strings.Split(p.ref, "."))
	if !ok {
		return "", r.unresolved(p.ref)
	}
	filtered, err := r.applySelector(p.ref, p.selector, set)
	if err != nil {
		return "", err
	}
	texts := make([]string, 0, filtered.Len())
	for _, c := range filtered.Slice() {
		texts = append(texts, c.Text)
	}
	return strings.Join(texts, ", "), nil
}

// unresolved builds the error that must always abort the run: it names
// the missing placeholder, lists what was available, and fuzzy-ranks the
// closest names as suggestions.
func (r *Resolver) unresolved(name string) error {
	available := r.available()
	var suggestions []string
	for i, m := range fuzzy.Find(name, available) {
		if i == 3 {
			break
		}
		suggestions = append(suggestions, m.Str)
	}
	return apperrors.UnresolvedPlaceholderError(name, available, suggestions)
}

func (r *Resolver) available() []string {
	var names []string
	names = append(names, r.ctx.ImportNames()...)
	for name := range r.ctx.Chunks {
		names = append(names, name)
	}
	for name := range r.ctx.Defaults {
		names = append(names, name)
	}
	return names
}
