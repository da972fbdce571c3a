// Package imports resolves the imports section of a document into named
// candidate sets. Entries can be single files, inline literals or lists,
// inline mappings, ordered multi-source lists, or nested groups; every
// shape was classified at parse time, so resolution is a walk over a
// closed union.
package imports

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	apperrors "github.com/promptweaver/promptweaver/internal/errors"
	"github.com/promptweaver/promptweaver/internal/models"
	"github.com/promptweaver/promptweaver/internal/storage"
)

// Resolver loads candidate files through the run's document store, so a
// file imported under several names is read once.
type Resolver struct {
	store *storage.Store
}

// NewResolver creates an import resolver bound to one run's store.
func NewResolver(store *storage.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve turns an imports section into resolved entries, in declaration
// order. baseDir is the owning document's directory; file references
// resolve against it.
func (r *Resolver) Resolve(section models.ImportSection, baseDir string) ([]models.ResolvedEntry, error) {
	entries := make([]models.ResolvedEntry, 0, len(section.Entries))
	for _, e := range section.Entries {
		value, err := r.resolveSource(e.Name, e.Source, baseDir)
		if err != nil {
			return nil, err
		}
		entries = append(entries, models.ResolvedEntry{Name: e.Name, Value: value})
	}
	return entries, nil
}

func (r *Resolver) resolveSource(name string, src models.ImportSource, baseDir string) (*models.ImportValue, error) {
	switch src.Kind {
	case models.SourceNestedGroup:
		group := make([]models.ResolvedEntry, 0, len(src.Group))
		for _, sub := range src.Group {
			value, err := r.resolveSource(name+"."+sub.Name, sub.Source, baseDir)
			if err != nil {
				return nil, err
			}
			group = append(group, models.ResolvedEntry{Name: sub.Name, Value: value})
		}
		return &models.ImportValue{Group: group}, nil

	case models.SourceMultiSource:
		set := models.NewCandidateSet()
		keySources := make(map[string]string)
		for _, sub := range src.Sources {
			if err := r.mergeInto(set, keySources, name, sub, baseDir); err != nil {
				return nil, err
			}
		}
		return &models.ImportValue{Set: set}, nil

	default:
		set := models.NewCandidateSet()
		keySources := make(map[string]string)
		if err := r.mergeInto(set, keySources, name, src, baseDir); err != nil {
			return nil, err
		}
		return &models.ImportValue{Set: set}, nil
	}
}

// mergeInto adds one source's candidates to the accumulating set.
// keySources records which file or inline mapping contributed each key;
// hash-keyed inline candidates stay out of it, so they never collide --
// an identical literal appearing twice simply dedupes.
func (r *Resolver) mergeInto(set *models.CandidateSet, keySources map[string]string, name string, src models.ImportSource, baseDir string) error {
	switch src.Kind {
	case models.SourceSingleFile:
		path := storage.Resolve(baseDir, src.File)
		candidates, err := r.loadCandidateFile(path)
		if err != nil {
			return err
		}
		for _, c := range candidates {
			if !set.Add(c.Key, c.Text) {
				return apperrors.DuplicateKeyError(name, c.Key, []string{keySources[c.Key], path})
			}
			keySources[c.Key] = path
		}

	case models.SourceInlineMap:
		for _, c := range src.Pairs {
			if !set.Add(c.Key, c.Text) {
				return apperrors.DuplicateKeyError(name, c.Key, []string{keySources[c.Key], "inline mapping"})
			}
			keySources[c.Key] = "inline mapping"
		}

	case models.SourceInlineLiteral:
		set.Add(ContentKey(src.Literal), src.Literal)

	case models.SourceInlineList:
		for _, text := range src.List {
			set.Add(ContentKey(text), text)
		}

	default:
		return apperrors.NewAppError(apperrors.ErrCodeInternalError,
			fmt.Sprintf("import %q: unexpected source kind %s inside a merge", name, src.Kind))
	}
	return nil
}

// loadCandidateFile reads a key -> text candidate file, preserving the
// author's key order. A duplicate key inside one file is a collision of
// that file with itself.
func (r *Resolver) loadCandidateFile(path string) ([]models.Candidate, error) {
	doc, err := r.store.Load(path)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(doc.Root.Content)/2)
	seen := make(map[string]bool)
	for i := 0; i+1 < len(doc.Root.Content); i += 2 {
		keyNode, valueNode := doc.Root.Content[i], doc.Root.Content[i+1]
		if seen[keyNode.Value] {
			return nil, apperrors.DuplicateKeyError(path, keyNode.Value, []string{path, path})
		}
		seen[keyNode.Value] = true
		candidates = append(candidates, models.Candidate{Key: keyNode.Value, Text: valueNode.Value})
	}
	return candidates, nil
}

// ContentKey derives the synthetic key of an inline candidate: a short,
// stable content hash. Eight hex characters are plenty for candidate
// lists of this size.
func ContentKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:4])
}
