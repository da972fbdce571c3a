// Package inherit resolves the implements chain of a document: it follows
// references to the root, merges fields top-down according to per-field
// merge rules, and caches the merged result per document path.
package inherit

import (
	"fmt"

	"github.com/rs/zerolog/log"

	apperrors "github.com/promptweaver/promptweaver/internal/errors"
	"github.com/promptweaver/promptweaver/internal/models"
	"github.com/promptweaver/promptweaver/internal/schema"
	"github.com/promptweaver/promptweaver/internal/storage"
)

// Resolver merges documents against their ancestor chains. The merge
// cache is keyed by canonical path: the same ancestor is frequently
// shared by many children and merges exactly once per run.
type Resolver struct {
	store *storage.Store
	cache map[string]models.Config
}

// NewResolver creates a resolver bound to one run's document store.
func NewResolver(store *storage.Store) *Resolver {
	return &Resolver{
		store: store,
		cache: make(map[string]models.Config),
	}
}

// Resolve returns the config fully merged against its ancestor chain.
// The result never retains an implements reference, and the returned
// value is the caller's to mutate.
func (r *Resolver) Resolve(cfg models.Config) (models.Config, error) {
	return r.resolve(cfg, map[string]bool{}, nil)
}

// resolve follows implements depth-first. The resolving set holds every
// path currently on the walk; meeting one again is the cycle signal.
func (r *Resolver) resolve(cfg models.Config, resolving map[string]bool, chain []string) (models.Config, error) {
	path := cfg.Base().Path
	chain = append(chain, path)

	if resolving[path] {
		return nil, apperrors.CircularInheritanceError(chain)
	}
	if merged, ok := r.cache[path]; ok {
		log.Debug().Str("path", path).Msg("inheritance cache hit")
		return clone(merged), nil
	}

	if cfg.Base().Implements == "" {
		merged := clone(cfg)
		merged.Base().Implements = ""
		r.cache[path] = merged
		return clone(merged), nil
	}

	parentPath := storage.Resolve(cfg.Base().Dir, cfg.Base().Implements)
	parentRaw, err := r.store.Load(parentPath)
	if err != nil {
		return nil, err
	}
	parentCfg, err := schema.Parse(parentRaw, "")
	if err != nil {
		return nil, err
	}

	if err := checkCompatibility(cfg, parentCfg); err != nil {
		return nil, err
	}

	resolving[path] = true
	parentMerged, err := r.resolve(parentCfg, resolving, chain)
	delete(resolving, path)
	if err != nil {
		return nil, err
	}

	merged := merge(parentMerged, cfg)
	r.cache[path] = merged
	return clone(merged), nil
}

// checkCompatibility enforces which kinds may inherit from which, and the
// chunk type-tag rule. A parent chunk without a type tag is tolerated
// with a warning so loosely-typed trees keep working.
func checkCompatibility(child, parent models.Config) error {
	childKind, parentKind := child.DocKind(), parent.DocKind()

	compatible := false
	switch childKind {
	case models.KindTemplate:
		compatible = parentKind == models.KindTemplate
	case models.KindChunk:
		compatible = parentKind == models.KindChunk
	case models.KindPrompt:
		compatible = parentKind == models.KindTemplate || parentKind == models.KindPrompt
	}
	if !compatible {
		return apperrors.NewAppError(apperrors.ErrCodeTypeMismatch,
			fmt.Sprintf("%s document %s cannot implement %s document %s",
				childKind, child.Base().Path, parentKind, parent.Base().Path)).
			WithContext("child", child.Base().Path).
			WithContext("parent", parent.Base().Path)
	}

	childChunk, okChild := child.(*models.ChunkConfig)
	parentChunk, okParent := parent.(*models.ChunkConfig)
	if okChild && okParent {
		switch {
		case parentChunk.Type == "":
			if childChunk.Type != "" {
				log.Warn().
					Str("child", childChunk.Path).
					Str("parent", parentChunk.Path).
					Msg("parent chunk has no type tag; compatibility not checked")
			}
		case childChunk.Type != "" && childChunk.Type != parentChunk.Type:
			return apperrors.TypeMismatchError(
				childChunk.Path, parentChunk.Path, childChunk.Type, parentChunk.Type)
		}
	}
	return nil
}

// merge applies the two-argument merge of a fully-merged parent and its
// child. Multi-level chains resolve by applying this repeatedly top-down.
func merge(parent, child models.Config) models.Config {
	merged := clone(child)
	mb, pb, cb := merged.Base(), parent.Base(), child.Base()

	mb.Implements = ""
	mb.Parameters = mergeAnyMaps(pb.Parameters, cb.Parameters)
	mb.Defaults = mergeStringMaps(pb.Defaults, cb.Defaults)
	mb.Chunks = mergeStringMaps(pb.Chunks, cb.Chunks)
	mb.Imports = mergeImports(pb.Imports, cb.Imports)

	if cb.NegativePrompt == "" {
		mb.NegativePrompt = pb.NegativePrompt
	}

	mergeTemplate(merged, parent, child)

	if mc, ok := merged.(*models.PromptConfig); ok {
		if pp, ok := parent.(*models.PromptConfig); ok {
			if mc.Generation == nil {
				mc.Generation = cloneGeneration(pp.Generation)
			}
			if mc.Output == nil {
				mc.Output = cloneOutput(pp.Output)
			}
		}
	}
	if mc, ok := merged.(*models.ChunkConfig); ok && mc.Type == "" {
		if pp, ok := parent.(*models.ChunkConfig); ok {
			mc.Type = pp.Type
		}
	}

	return merged
}

// mergeTemplate applies the template-field rule. Between documents of the
// same kind the child's text, if present, fully replaces the parent's --
// with a structured warning so an unintended override is noticed. A
// prompt inheriting from a template instead injects its own text at the
// parent's {prompt} marker.
func mergeTemplate(merged, parent, child models.Config) {
	parentText := parent.Template()
	childText := child.Template()

	if child.DocKind() == models.KindPrompt && parent.DocKind() == models.KindTemplate {
		merged.SetTemplate(injectPrompt(parentText, childText))
		return
	}

	if childText == "" {
		merged.SetTemplate(parentText)
		return
	}
	if parentText != "" && parentText != childText {
		log.Warn().
			Str("child", child.Base().Path).
			Str("parent", parent.Base().Path).
			Msg("child template replaces parent template")
	}
	merged.SetTemplate(childText)
}

func mergeStringMaps(parent, child map[string]string) map[string]string {
	if parent == nil && child == nil {
		return nil
	}
	out := make(map[string]string, len(parent)+len(child))
	for k, v := range parent {
		out[k] = v
	}
	for k, v := range child {
		out[k] = v
	}
	return out
}

func mergeAnyMaps(parent, child map[string]any) map[string]any {
	if parent == nil && child == nil {
		return nil
	}
	out := make(map[string]any, len(parent)+len(child))
	for k, v := range parent {
		out[k] = v
	}
	for k, v := range child {
		out[k] = v
	}
	return out
}

// mergeImports keeps the parent's entry order for inherited names; a
// child entry with the same name replaces the parent's in place, new
// child entries append in their own order.
func mergeImports(parent, child models.ImportSection) models.ImportSection {
	out := models.ImportSection{Entries: make([]models.ImportEntry, 0, len(parent.Entries)+len(child.Entries))}
	out.Entries = append(out.Entries, parent.Entries...)
	for _, ce := range child.Entries {
		replaced := false
		for i, pe := range out.Entries {
			if pe.Name == ce.Name {
				out.Entries[i] = ce
				replaced = true
				break
			}
		}
		if !replaced {
			out.Entries = append(out.Entries, ce)
		}
	}
	return out
}
