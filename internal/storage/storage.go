// Package storage implements the document store: it reads template
// documents from disk, parses them as YAML, and memoizes the parsed
// result per canonical absolute path so a document referenced from many
// places is read and parsed exactly once per run.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	apperrors "github.com/promptweaver/promptweaver/internal/errors"
)

// RawDocument is one parsed-but-untyped document. Later stages re-decode
// the root node into a typed config; RawDocument only guarantees it is
// well-formed YAML with a mapping at the top level.
type RawDocument struct {
	Path string // canonical absolute path
	Dir  string // directory relative references resolve against

	Root   *yaml.Node            // the top-level mapping node
	Fields map[string]*yaml.Node // top-level field name -> value node
}

// Has reports whether a top-level field is present.
func (d *RawDocument) Has(field string) bool {
	_, ok := d.Fields[field]
	return ok
}

// Field returns the value node of a top-level field.
func (d *RawDocument) Field(name string) (*yaml.Node, bool) {
	n, ok := d.Fields[name]
	return n, ok
}

// Store loads and caches raw documents. It is owned by one pipeline run;
// the cache never expires within a run and dies with it.
type Store struct {
	cache *documentCache
}

// NewStore creates a new document store with an empty cache.
func NewStore() *Store {
	return &Store{cache: newDocumentCache()}
}

// Canonical resolves a path to the cleaned absolute form used as the
// cache key.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// Resolve resolves a reference found inside a document against that
// document's own directory, keeping document trees relocatable.
func Resolve(baseDir, ref string) string {
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Join(baseDir, ref)
}

// Load reads and parses the document at path. Results are memoized by
// canonical absolute path; failures are never cached, so a fixed file is
// re-read on the next call.
func (s *Store) Load(path string) (*RawDocument, error) {
	canonical, err := Canonical(path)
	if err != nil {
		return nil, apperrors.DocumentError(path, err)
	}

	if doc, ok := s.cache.get(canonical); ok {
		return doc, nil
	}

	content, err := os.ReadFile(canonical)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeFileNotFound,
				fmt.Sprintf("document not found: %s", canonical)).
				WithContext("path", canonical)
		}
		return nil, apperrors.DocumentError(canonical, err)
	}

	doc, err := parseDocument(canonical, content)
	if err != nil {
		return nil, err
	}

	s.cache.put(canonical, doc)
	return doc, nil
}

// parseDocument decodes the YAML body and indexes the top-level fields.
func parseDocument(path string, content []byte) (*RawDocument, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMalformedYAML,
			fmt.Sprintf("malformed YAML in %s", path)).
			WithContext("path", path)
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, apperrors.SchemaError(apperrors.ErrCodeMalformedYAML, path,
			fmt.Sprintf("document %s is empty", path))
	}

	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, apperrors.SchemaError(apperrors.ErrCodeMalformedYAML, path,
			fmt.Sprintf("document %s must be a mapping at the top level", path))
	}

	fields := make(map[string]*yaml.Node, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		fields[mapping.Content[i].Value] = mapping.Content[i+1]
	}

	return &RawDocument{
		Path:   path,
		Dir:    filepath.Dir(path),
		Root:   mapping,
		Fields: fields,
	}, nil
}
