package models

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceKind discriminates the closed set of shapes an imports entry can
// take. Classification happens once, at parse time, so every later stage
// works against one concrete shape per case.
type SourceKind int

const (
	SourceSingleFile SourceKind = iota
	SourceInlineLiteral
	SourceInlineList
	SourceInlineMap
	SourceMultiSource
	SourceNestedGroup
)

func (k SourceKind) String() string {
	switch k {
	case SourceSingleFile:
		return "file"
	case SourceInlineLiteral:
		return "inline literal"
	case SourceInlineList:
		return "inline list"
	case SourceInlineMap:
		return "inline mapping"
	case SourceMultiSource:
		return "multi-source list"
	case SourceNestedGroup:
		return "nested group"
	}
	return "unknown"
}

// ImportSource is the tagged union behind one imports entry. Exactly the
// fields matching Kind are populated.
type ImportSource struct {
	Kind    SourceKind
	File    string         // SourceSingleFile: path relative to the owning document
	Literal string         // SourceInlineLiteral
	List    []string       // SourceInlineList: each element one candidate text
	Pairs   []Candidate    // SourceInlineMap: ordered key -> text pairs
	Sources []ImportSource // SourceMultiSource: merged in list order
	Group   []ImportEntry  // SourceNestedGroup: named sub-imports
}

// ImportEntry is one named entry of an imports section.
type ImportEntry struct {
	Name   string
	Source ImportSource
}

// ImportSection preserves the author's entry order, which multi-source
// merging and candidate ordering both depend on.
type ImportSection struct {
	Entries []ImportEntry
}

// Get returns the entry with the given name, if present.
func (s ImportSection) Get(name string) (ImportEntry, bool) {
	for _, e := range s.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return ImportEntry{}, false
}

// Names returns the entry names in declaration order.
func (s ImportSection) Names() []string {
	names := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		names[i] = e.Name
	}
	return names
}

// IsZero reports whether the section is empty. yaml.v3 uses it to honor
// the omitempty tag on struct fields of this type.
func (s ImportSection) IsZero() bool {
	return len(s.Entries) == 0
}

// UnmarshalYAML classifies every entry into the ImportSource union while
// the node shapes are still visible.
func (s *ImportSection) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("imports section must be a mapping, got %s", nodeKindName(node.Kind))
	}
	entries, err := classifyGroup(node)
	if err != nil {
		return err
	}
	s.Entries = entries
	return nil
}

func classifyGroup(node *yaml.Node) ([]ImportEntry, error) {
	entries := make([]ImportEntry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		src, err := classifySource(node.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("import %q: %w", name, err)
		}
		entries = append(entries, ImportEntry{Name: name, Source: src})
	}
	return entries, nil
}

func classifySource(node *yaml.Node) (ImportSource, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if isFileRef(node.Value) {
			return ImportSource{Kind: SourceSingleFile, File: node.Value}, nil
		}
		return ImportSource{Kind: SourceInlineLiteral, Literal: node.Value}, nil

	case yaml.SequenceNode:
		return classifySequence(node)

	case yaml.MappingNode:
		return classifyMapping(node)

	case yaml.AliasNode:
		return classifySource(node.Alias)
	}
	return ImportSource{}, fmt.Errorf("unsupported node shape %s", nodeKindName(node.Kind))
}

// classifySequence distinguishes a plain list of inline candidates from an
// ordered multi-source list. A sequence whose elements are all non-file
// scalars is a candidate list; anything else merges source by source.
func classifySequence(node *yaml.Node) (ImportSource, error) {
	plain := true
	for _, el := range node.Content {
		if el.Kind != yaml.ScalarNode || isFileRef(el.Value) {
			plain = false
			break
		}
	}
	if plain {
		list := make([]string, len(node.Content))
		for i, el := range node.Content {
			list[i] = el.Value
		}
		return ImportSource{Kind: SourceInlineList, List: list}, nil
	}

	sources := make([]ImportSource, 0, len(node.Content))
	for i, el := range node.Content {
		src, err := classifySource(el)
		if err != nil {
			return ImportSource{}, fmt.Errorf("source %d: %w", i, err)
		}
		if src.Kind == SourceNestedGroup {
			return ImportSource{}, fmt.Errorf("source %d: nested groups cannot appear inside a multi-source list", i)
		}
		sources = append(sources, src)
	}
	return ImportSource{Kind: SourceMultiSource, Sources: sources}, nil
}

// classifyMapping distinguishes an inline candidate map (all values are
// non-file scalars) from a nested group of further named sources. A map
// whose scalar values all look like file references is a group of file
// sources; mixing the two reads is rejected rather than guessed.
func classifyMapping(node *yaml.Node) (ImportSource, error) {
	scalars, fileRefs := 0, 0
	total := len(node.Content) / 2
	for i := 1; i < len(node.Content); i += 2 {
		if node.Content[i].Kind == yaml.ScalarNode {
			scalars++
			if isFileRef(node.Content[i].Value) {
				fileRefs++
			}
		}
	}

	if scalars == total && fileRefs == 0 {
		pairs := make([]Candidate, 0, total)
		for i := 0; i+1 < len(node.Content); i += 2 {
			pairs = append(pairs, Candidate{
				Key:  node.Content[i].Value,
				Text: node.Content[i+1].Value,
			})
		}
		return ImportSource{Kind: SourceInlineMap, Pairs: pairs}, nil
	}

	if scalars == total && fileRefs != total {
		return ImportSource{}, fmt.Errorf("mapping mixes file references with inline candidate text; split them into separate entries")
	}

	group, err := classifyGroup(node)
	if err != nil {
		return ImportSource{}, err
	}
	return ImportSource{Kind: SourceNestedGroup, Group: group}, nil
}

func isFileRef(v string) bool {
	lower := strings.ToLower(v)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

func nodeKindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
