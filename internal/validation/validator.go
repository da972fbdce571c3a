// Package validation walks every document reachable from an entry point
// and accumulates all findings instead of stopping at the first. Five
// phases run in order: structure, paths, inheritance compatibility,
// import collisions, and template consistency.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/promptweaver/promptweaver/internal/errors"
	"github.com/promptweaver/promptweaver/internal/imports"
	"github.com/promptweaver/promptweaver/internal/models"
	"github.com/promptweaver/promptweaver/internal/schema"
	"github.com/promptweaver/promptweaver/internal/storage"
	"github.com/promptweaver/promptweaver/internal/template"
)

// ValidationError is one finding, serializable for machine consumers.
type ValidationError struct {
	Kind    string `json:"kind"`
	File    string `json:"file"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ValidationResult aggregates the findings of one validation run.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []ValidationError `json:"warnings,omitempty"`
	Checked  []string          `json:"checked_files"`
}

// ToAppError condenses a failed result into a single error for callers
// that only need the summary.
func (r *ValidationResult) ToAppError() *apperrors.AppError {
	if r.Valid {
		return nil
	}
	first := r.Errors[0]
	return apperrors.NewAppError(apperrors.ErrCodeValidation,
		fmt.Sprintf("%d validation error(s), first: %s", len(r.Errors), first.Message)).
		WithContext("file", first.File)
}

// Validator checks a document tree rooted at one entry point.
type Validator struct {
	store *storage.Store
}

// New creates a validator over the given document store.
func New(store *storage.Store) *Validator {
	return &Validator{store: store}
}

// Validate loads every document reachable from entryPath and runs all
// phases over each. Findings accumulate; only unreadable or unparseable
// files cut the walk short for their own subtree.
func (v *Validator) Validate(entryPath string) (*ValidationResult, error) {
	canonical, err := storage.Canonical(entryPath)
	if err != nil {
		return nil, apperrors.DocumentError(entryPath, err)
	}

	run := &validationRun{
		validator: v,
		visited:   make(map[string]bool),
		result:    &ValidationResult{Valid: true},
	}
	run.walk(canonical)

	sort.Slice(run.result.Errors, func(i, j int) bool {
		a, b := run.result.Errors[i], run.result.Errors[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Field < b.Field
	})
	sort.Strings(run.result.Checked)
	run.result.Valid = len(run.result.Errors) == 0

	log.Debug().
		Int("files", len(run.result.Checked)).
		Int("errors", len(run.result.Errors)).
		Int("warnings", len(run.result.Warnings)).
		Msg("validation finished")
	return run.result, nil
}

type validationRun struct {
	validator *Validator
	visited   map[string]bool
	result    *ValidationResult
}

func (r *validationRun) addError(kind, file, field, message, details string) {
	r.result.Errors = append(r.result.Errors, ValidationError{
		Kind: kind, File: file, Field: field, Message: message, Details: details,
	})
}

func (r *validationRun) addWarning(kind, file, field, message string) {
	r.result.Warnings = append(r.result.Warnings, ValidationError{
		Kind: kind, File: file, Field: field, Message: message,
	})
}

// walk validates one file and recurses into every file it references.
// Cycles are cut here; the inheritance resolver reports them properly
// at resolution time, so the walk only needs to terminate.
func (r *validationRun) walk(path string) {
	if r.visited[path] {
		return
	}
	r.visited[path] = true
	r.result.Checked = append(r.result.Checked, path)

	doc, err := r.validator.store.Load(path)
	if err != nil {
		r.addError("document", path, "", err.Error(), "")
		return
	}

	// phase 1: structural checks
	for _, appErr := range schema.Check(doc) {
		r.addError("structure", path, fieldOf(appErr), appErr.Message, appErr.Details)
	}

	kind, err := schema.DetectKind(doc)
	if err != nil {
		return
	}
	cfg, err := schema.Parse(doc, kind)
	if err != nil {
		return
	}
	base := cfg.Base()

	// phase 2: referenced paths
	if base.Implements != "" {
		r.checkRef(path, "implements", base.Implements, base.Dir)
	}
	for name, ref := range base.Chunks {
		r.checkRef(path, "chunks."+name, ref, base.Dir)
	}
	r.walkImports(path, "imports", base.Imports, base.Dir)

	// phase 3: inheritance compatibility
	if base.Implements != "" {
		r.checkInheritance(path, cfg)
	}

	// phase 4: import collisions
	if _, err := imports.NewResolver(r.validator.store).Resolve(base.Imports, base.Dir); err != nil {
		if appErr := apperrors.GetAppError(err); appErr != nil && appErr.Code == apperrors.ErrCodeDuplicateKey {
			r.addError("imports", path, "imports", appErr.Message, appErr.Details)
		}
	}

	// phase 5: template consistency
	r.checkTemplate(path, cfg)
}

// checkRef validates one file reference and recurses into it.
func (r *validationRun) checkRef(path, field, ref, baseDir string) {
	if filepath.IsAbs(ref) {
		r.addError("path", path, field,
			fmt.Sprintf("absolute path %q is not allowed; use a path relative to the document", ref), "")
		return
	}
	target := storage.Resolve(baseDir, ref)
	if _, err := os.Stat(target); err != nil {
		r.addError("path", path, field,
			fmt.Sprintf("referenced file %q does not exist", ref), target)
		return
	}
	r.walk(target)
}

// walkImports descends the import section collecting file references.
func (r *validationRun) walkImports(path, field string, section models.ImportSection, baseDir string) {
	for _, entry := range section.Entries {
		r.walkImportSource(path, field+"."+entry.Name, entry.Source, baseDir)
	}
}

func (r *validationRun) walkImportSource(path, field string, src models.ImportSource, baseDir string) {
	switch src.Kind {
	case models.SourceSingleFile:
		r.checkImportFile(path, field, src.File, baseDir)
	case models.SourceMultiSource:
		for i, sub := range src.Sources {
			r.walkImportSource(path, fmt.Sprintf("%s[%d]", field, i), sub, baseDir)
		}
	case models.SourceNestedGroup:
		for _, entry := range src.Group {
			r.walkImportSource(path, field+"."+entry.Name, entry.Source, baseDir)
		}
	}
}

// checkImportFile checks existence only: candidate files are flat
// key/value YAML, not documents, so the walk does not descend into them.
func (r *validationRun) checkImportFile(path, field, ref, baseDir string) {
	if filepath.IsAbs(ref) {
		r.addError("path", path, field,
			fmt.Sprintf("absolute path %q is not allowed; use a path relative to the document", ref), "")
		return
	}
	target := storage.Resolve(baseDir, ref)
	if _, err := os.Stat(target); err != nil {
		r.addError("path", path, field,
			fmt.Sprintf("referenced file %q does not exist", ref), target)
	}
}

// checkInheritance verifies the immediate parent is loadable and the
// kind pairing is legal. Full chain resolution, including cycles, is the
// inheritance resolver's job.
func (r *validationRun) checkInheritance(path string, cfg models.Config) {
	base := cfg.Base()
	parentPath := storage.Resolve(base.Dir, base.Implements)
	parentDoc, err := r.validator.store.Load(parentPath)
	if err != nil {
		return // reported by phase 2
	}
	parentKind, err := schema.DetectKind(parentDoc)
	if err != nil {
		return
	}
	parent, err := schema.Parse(parentDoc, parentKind)
	if err != nil {
		return
	}

	switch child := cfg.(type) {
	case *models.TemplateConfig:
		if parentKind != models.KindTemplate {
			r.addError("inheritance", path, "implements",
				fmt.Sprintf("a template can only implement another template, not a %s", parentKind), "")
		}
	case *models.ChunkConfig:
		parentChunk, ok := parent.(*models.ChunkConfig)
		if !ok {
			r.addError("inheritance", path, "implements",
				fmt.Sprintf("a chunk can only implement another chunk, not a %s", parentKind), "")
			return
		}
		if parentChunk.Type == "" {
			r.addWarning("inheritance", path, "implements",
				fmt.Sprintf("parent chunk %q carries no type tag; compatibility cannot be checked", base.Implements))
			return
		}
		if child.Type != "" && child.Type != parentChunk.Type {
			r.addError("inheritance", path, "implements",
				fmt.Sprintf("chunk type %q does not match parent type %q", child.Type, parentChunk.Type), "")
		}
	case *models.PromptConfig:
		if parentKind == models.KindChunk {
			r.addError("inheritance", path, "implements",
				"a prompt cannot implement a chunk", "")
		}
	}
}

// checkTemplate parses every placeholder and chunk call in the document's
// template text and flags syntax errors and references to names the
// document cannot see. Names that could come from an inherited parent
// are only warned about: the resolver settles them authoritatively.
func (r *validationRun) checkTemplate(path string, cfg models.Config) {
	texts := []struct {
		field string
		text  string
	}{
		{templateField(cfg), cfg.Template()},
		{"negative_prompt", cfg.Base().NegativePrompt},
	}

	known := r.knownNames(cfg)
	inherits := cfg.Base().Implements != ""

	for _, t := range texts {
		if t.text == "" {
			continue
		}
		refs, errs := template.ExtractRefs(t.text)
		for _, err := range errs {
			r.addError("template", path, t.field, err.Error(), "")
		}
		for _, ref := range refs {
			if isReserved(ref.Name) {
				continue
			}
			root := strings.SplitN(ref.Name, ".", 2)[0]
			if known[root] {
				continue
			}
			msg := fmt.Sprintf("reference %q does not match any import, chunk or default of this document", ref.Name)
			if ref.IsChunk {
				msg = fmt.Sprintf("chunk call %q does not match any chunk or import of this document", ref.Name)
			}
			if inherits {
				r.addWarning("template", path, t.field, msg+" (it may come from an inherited parent)")
			} else {
				r.addError("template", path, t.field, msg, "")
			}
		}
	}

	if prompt, ok := cfg.(*models.PromptConfig); ok && prompt.Output != nil {
		for _, key := range prompt.Output.FilenameKeys {
			if known[key] {
				continue
			}
			msg := fmt.Sprintf("filename key %q does not match any import, chunk or default of this document", key)
			if inherits {
				r.addWarning("template", path, "output.filename_keys", msg+" (it may come from an inherited parent)")
			} else {
				r.addError("template", path, "output.filename_keys", msg, "")
			}
		}
	}
}

func (r *validationRun) knownNames(cfg models.Config) map[string]bool {
	base := cfg.Base()
	known := make(map[string]bool)
	for _, name := range base.Imports.Names() {
		known[name] = true
	}
	for name := range base.Chunks {
		known[name] = true
	}
	for name := range base.Defaults {
		known[name] = true
	}
	return known
}

func isReserved(name string) bool {
	for _, reserved := range schema.ReservedPlaceholders() {
		if strings.EqualFold(name, strings.Trim(reserved, "{}")) {
			return true
		}
	}
	return false
}

func templateField(cfg models.Config) string {
	switch cfg.DocKind() {
	case models.KindTemplate:
		return "template"
	case models.KindChunk:
		return "chunk_template"
	default:
		return "prompt_template"
	}
}

func fieldOf(err *apperrors.AppError) string {
	if err.Context == nil {
		return ""
	}
	if f, ok := err.Context["field"].(string); ok {
		return f
	}
	return ""
}
