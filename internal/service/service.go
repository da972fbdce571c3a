// Package service wires the resolution pipeline end to end: validate,
// parse, inherit, import, expand, generate, normalize. It owns the
// per-run document store so repeated references load once.
package service

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/promptweaver/promptweaver/internal/errors"
	"github.com/promptweaver/promptweaver/internal/generator"
	"github.com/promptweaver/promptweaver/internal/imports"
	"github.com/promptweaver/promptweaver/internal/inherit"
	"github.com/promptweaver/promptweaver/internal/models"
	"github.com/promptweaver/promptweaver/internal/normalize"
	"github.com/promptweaver/promptweaver/internal/schema"
	"github.com/promptweaver/promptweaver/internal/storage"
	"github.com/promptweaver/promptweaver/internal/template"
	"github.com/promptweaver/promptweaver/internal/validation"
)

// Options tunes a pipeline run.
type Options struct {
	// MaxVariations caps the output length regardless of what the
	// document requests. Zero means no cap.
	MaxVariations int

	// SkipValidation resolves without the upfront validation pass.
	// Resolution errors still surface, but one at a time.
	SkipValidation bool
}

// Result is the outcome of one pipeline run.
type Result struct {
	Validation *validation.ValidationResult `json:"validation,omitempty"`
	Entry      string                       `json:"entry"`
	SessionID  string                       `json:"session_id,omitempty"`
	Output     *models.OutputConfig         `json:"output,omitempty"`
	Variations []models.ResolvedVariation   `json:"variations"`
}

// Engine runs the resolution pipeline. Each Engine owns its own store;
// create one per run so document caching never crosses runs.
type Engine struct {
	store   *storage.Store
	inherit *inherit.Resolver
	options Options
}

// NewEngine creates a pipeline engine.
func NewEngine(options Options) *Engine {
	store := storage.NewStore()
	return &Engine{
		store:   store,
		inherit: inherit.NewResolver(store),
		options: options,
	}
}

// ValidateOnly runs the validation pass without resolving anything.
func (e *Engine) ValidateOnly(entryPath string) (*validation.ValidationResult, error) {
	return validation.New(e.store).Validate(entryPath)
}

// Run resolves the prompt document at entryPath into its full list of
// variations. When validation fails, the result carries the findings and
// the returned error summarizes them; no resolution is attempted.
func (e *Engine) Run(entryPath string) (*Result, error) {
	result := &Result{Entry: entryPath}

	if !e.options.SkipValidation {
		vr, err := e.ValidateOnly(entryPath)
		if err != nil {
			return nil, err
		}
		result.Validation = vr
		if !vr.Valid {
			return result, vr.ToAppError()
		}
	}

	prompt, err := e.loadEntry(entryPath)
	if err != nil {
		return nil, err
	}
	result.Output = prompt.Output
	if prompt.Output != nil {
		result.SessionID = prompt.Output.SessionName
	}

	gen := prompt.GenerationOrDefault()
	rng := newRNG(gen)

	ctx, err := e.buildContext(prompt)
	if err != nil {
		return nil, err
	}

	positive := inherit.FinishComposition(prompt.Text, prompt.NegativePrompt)
	if strings.TrimSpace(positive) == "" {
		return nil, apperrors.SchemaError(apperrors.ErrCodeMissingField, entryPath,
			"the composed prompt template is empty")
	}
	resolved, err := template.NewResolver(ctx, rng).Resolve(positive, prompt.NegativePrompt)
	if err != nil {
		return nil, err
	}

	variations, err := generator.New(rng).Generate(resolved, gen, ctx.Parameters)
	if err != nil {
		return nil, err
	}

	if limit := e.options.MaxVariations; limit > 0 && len(variations) > limit {
		log.Warn().
			Int("generated", len(variations)).
			Int("cap", limit).
			Msg("variation list truncated by the configured cap")
		variations = variations[:limit]
	}

	for i := range variations {
		variations[i].FinalPrompt = normalize.Text(variations[i].FinalPrompt)
		variations[i].FinalNegativePrompt = normalize.Text(variations[i].FinalNegativePrompt)
	}
	result.Variations = variations

	log.Info().
		Str("entry", entryPath).
		Str("mode", string(gen.Mode)).
		Int("variations", len(variations)).
		Msg("resolution complete")
	return result, nil
}

// loadEntry loads, parses and inheritance-resolves the entry document,
// which must be a prompt.
func (e *Engine) loadEntry(entryPath string) (*models.PromptConfig, error) {
	doc, err := e.store.Load(entryPath)
	if err != nil {
		return nil, err
	}
	cfg, err := schema.Parse(doc, models.KindPrompt)
	if err != nil {
		return nil, err
	}
	merged, err := e.inherit.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	prompt, ok := merged.(*models.PromptConfig)
	if !ok {
		return nil, apperrors.NewAppError(apperrors.ErrCodeInternalError,
			fmt.Sprintf("entry document resolved to a %s, expected a prompt", merged.DocKind()))
	}
	return prompt, nil
}

// buildContext assembles the resolution context: the entry's imports and
// defaults, plus every referenced chunk resolved through its own
// inheritance chain. Imports declared by a chunk's own document are
// merged in after the entry's, so the entry wins name collisions.
func (e *Engine) buildContext(prompt *models.PromptConfig) (*models.ResolvedContext, error) {
	importResolver := imports.NewResolver(e.store)

	entries, err := importResolver.Resolve(prompt.Imports, prompt.Dir)
	if err != nil {
		return nil, err
	}

	ctx := &models.ResolvedContext{
		Imports:    entries,
		Chunks:     make(map[string]*models.ChunkConfig, len(prompt.Chunks)),
		Defaults:   prompt.Defaults,
		Parameters: prompt.Parameters,
	}

	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		seen[entry.Name] = true
	}

	for name, ref := range prompt.Chunks {
		chunk, err := e.loadChunk(name, ref, prompt.Dir)
		if err != nil {
			return nil, err
		}
		ctx.Chunks[name] = chunk

		chunkEntries, err := importResolver.Resolve(chunk.Imports, chunk.Dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range chunkEntries {
			if seen[entry.Name] {
				continue
			}
			seen[entry.Name] = true
			ctx.Imports = append(ctx.Imports, entry)
		}
	}
	return ctx, nil
}

func (e *Engine) loadChunk(name, ref, baseDir string) (*models.ChunkConfig, error) {
	path := storage.Resolve(baseDir, ref)
	doc, err := e.store.Load(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDocument,
			fmt.Sprintf("loading chunk %q", name))
	}
	cfg, err := schema.Parse(doc, models.KindChunk)
	if err != nil {
		return nil, err
	}
	merged, err := e.inherit.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	chunk, ok := merged.(*models.ChunkConfig)
	if !ok {
		return nil, apperrors.NewAppError(apperrors.ErrCodeInternalError,
			fmt.Sprintf("chunk %q resolved to a %s", name, merged.DocKind()))
	}
	return chunk, nil
}

// newRNG seeds the run's random source. Fixed and progressive runs
// derive it from the document seed so random-pick selectors and flavor
// draws reproduce; random seed mode draws fresh entropy.
func newRNG(gen models.GenerationConfig) *rand.Rand {
	if gen.SeedMode == models.SeedRandom {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	seed := uint64(gen.Seed)
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
