// Package schema converts raw parsed documents into one of the three
// typed configuration records (template, chunk, prompt), rejecting
// structurally invalid documents with precise, file-level messages.
package schema

import (
	"fmt"
	"strings"

	apperrors "github.com/promptweaver/promptweaver/internal/errors"
	"github.com/promptweaver/promptweaver/internal/models"
	"github.com/promptweaver/promptweaver/internal/storage"
)

// Field names of the kind-specific template string. Prompt documents used
// to call theirs "prompt"; that name is recognized only to produce a
// specific migration error.
const (
	TemplateField     = "template"
	ChunkField        = "chunk_template"
	PromptField       = "prompt_template"
	LegacyPromptField = "prompt"
)

// PromptInjection is the literal injection point every template document
// must contain; a child prompt is substituted there during composition.
const PromptInjection = "{prompt}"

// reservedPlaceholders may never appear in a chunk template: they are
// injection points owned by the composition step.
var reservedPlaceholders = []string{"{prompt}", "{negprompt}", "{loras}"}

// supportedVersion is the only accepted document format version.
const supportedVersion = "1"

// DetectKind determines which document kind a raw document is. An
// explicit kind field wins; otherwise the kind-specific template field
// decides.
func DetectKind(doc *storage.RawDocument) (models.Kind, error) {
	if n, ok := doc.Field("kind"); ok {
		switch models.Kind(n.Value) {
		case models.KindTemplate, models.KindChunk, models.KindPrompt:
			return models.Kind(n.Value), nil
		}
		return "", apperrors.SchemaError(apperrors.ErrCodeSchema, doc.Path,
			fmt.Sprintf("unknown document kind %q in %s", n.Value, doc.Path))
	}

	switch {
	case doc.Has(PromptField) || doc.Has(LegacyPromptField) || doc.Has("generation"):
		return models.KindPrompt, nil
	case doc.Has(ChunkField):
		return models.KindChunk, nil
	case doc.Has(TemplateField):
		return models.KindTemplate, nil
	}
	return "", apperrors.SchemaError(apperrors.ErrCodeSchema, doc.Path,
		fmt.Sprintf("cannot determine document kind of %s: no template, chunk_template or prompt_template field", doc.Path))
}

// Parse converts a raw document into its typed config. When expected is
// non-empty, the detected kind must match it. The first structural
// violation found is returned; Check returns all of them for the
// validator's accumulating pass.
func Parse(doc *storage.RawDocument, expected models.Kind) (models.Config, error) {
	kind, err := DetectKind(doc)
	if err != nil {
		return nil, err
	}
	if expected != "" && kind != expected {
		return nil, apperrors.SchemaError(apperrors.ErrCodeSchema, doc.Path,
			fmt.Sprintf("%s: expected a %s document, found %s", doc.Path, expected, kind))
	}

	cfg, err := decode(doc, kind)
	if err != nil {
		return nil, err
	}

	if violations := checkConfig(doc, cfg); len(violations) > 0 {
		return nil, violations[0]
	}
	return cfg, nil
}

// Check runs every structural check and returns all violations, never
// stopping at the first. The validator's structure phase uses it so the
// author sees every problem in one run.
func Check(doc *storage.RawDocument) []*apperrors.AppError {
	kind, err := DetectKind(doc)
	if err != nil {
		return []*apperrors.AppError{apperrors.GetAppError(err)}
	}
	cfg, err := decode(doc, kind)
	if err != nil {
		return []*apperrors.AppError{apperrors.GetAppError(err)}
	}
	return checkConfig(doc, cfg)
}

func decode(doc *storage.RawDocument, kind models.Kind) (models.Config, error) {
	var cfg models.Config
	switch kind {
	case models.KindTemplate:
		cfg = &models.TemplateConfig{}
	case models.KindChunk:
		cfg = &models.ChunkConfig{}
	case models.KindPrompt:
		cfg = &models.PromptConfig{}
	}

	if err := doc.Root.Decode(cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSchema,
			fmt.Sprintf("cannot decode %s as a %s document", doc.Path, kind)).
			WithContext("file", doc.Path)
	}

	base := cfg.Base()
	base.Path = doc.Path
	base.Dir = doc.Dir
	return cfg, nil
}

// checkConfig performs the structural checks that are cheap to do at
// parse time and give the clearest error locality.
func checkConfig(doc *storage.RawDocument, cfg models.Config) []*apperrors.AppError {
	var violations []*apperrors.AppError
	fail := func(code apperrors.ErrorCode, format string, args ...any) {
		violations = append(violations,
			apperrors.SchemaError(code, doc.Path, fmt.Sprintf(format, args...)))
	}

	base := cfg.Base()
	if base.Version == "" {
		fail(apperrors.ErrCodeMissingField, "%s: missing required field version", doc.Path)
	} else if base.Version != supportedVersion {
		fail(apperrors.ErrCodeSchema, "%s: unsupported version %q (only %q is supported)", doc.Path, base.Version, supportedVersion)
	}
	if base.Name == "" {
		fail(apperrors.ErrCodeMissingField, "%s: missing required field name", doc.Path)
	}

	switch c := cfg.(type) {
	case *models.TemplateConfig:
		if c.Text == "" {
			fail(apperrors.ErrCodeMissingField, "%s: missing required field %s", doc.Path, TemplateField)
		} else if !strings.Contains(c.Text, PromptInjection) {
			fail(apperrors.ErrCodeMissingInjection,
				"%s: template must contain the literal %s injection point, e.g.\n  template: |\n    masterpiece, %s, high detail",
				doc.Path, PromptInjection, PromptInjection)
		}

	case *models.ChunkConfig:
		if c.Text == "" {
			fail(apperrors.ErrCodeMissingField, "%s: missing required field %s", doc.Path, ChunkField)
		}
		lower := strings.ToLower(c.Text)
		for _, reserved := range reservedPlaceholders {
			if strings.Contains(lower, reserved) {
				fail(apperrors.ErrCodeReservedPlaceholder,
					"%s: chunk template must not contain the reserved placeholder %s", doc.Path, reserved)
			}
		}

	case *models.PromptConfig:
		if doc.Has(LegacyPromptField) {
			fail(apperrors.ErrCodeLegacyField,
				"%s: the %q field was renamed; use %q instead", doc.Path, LegacyPromptField, PromptField)
		}
		if c.Text == "" && !doc.Has(LegacyPromptField) {
			fail(apperrors.ErrCodeMissingField, "%s: missing required field %s", doc.Path, PromptField)
		}
		if c.Generation != nil {
			violations = append(violations, checkGeneration(doc.Path, c.Generation)...)
		}
	}

	return violations
}

func checkGeneration(path string, gen *models.GenerationConfig) []*apperrors.AppError {
	var violations []*apperrors.AppError
	switch gen.Mode {
	case "", models.ModeCombinatorial, models.ModeRandom:
	default:
		violations = append(violations, apperrors.SchemaError(apperrors.ErrCodeSchema, path,
			fmt.Sprintf("%s: generation.mode must be combinatorial or random, got %q", path, gen.Mode)))
	}
	switch gen.SeedMode {
	case "", models.SeedFixed, models.SeedProgressive, models.SeedRandom:
	default:
		violations = append(violations, apperrors.SchemaError(apperrors.ErrCodeSchema, path,
			fmt.Sprintf("%s: generation.seed_mode must be fixed, progressive or random, got %q", path, gen.SeedMode)))
	}
	// 0 is the zero value of an omitted max_images and means the full
	// product, same as -1
	if gen.MaxImages < -1 {
		violations = append(violations, apperrors.SchemaError(apperrors.ErrCodeSchema, path,
			fmt.Sprintf("%s: generation.max_images must be -1 or 0 (full product) or a positive count, got %d", path, gen.MaxImages)))
	}
	return violations
}

// ReservedPlaceholders exposes the reserved placeholder list for the
// validator's template-consistency phase.
func ReservedPlaceholders() []string {
	out := make([]string, len(reservedPlaceholders))
	copy(out, reservedPlaceholders)
	return out
}
