package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func parseSection(t *testing.T, src string) ImportSection {
	t.Helper()
	var section ImportSection
	require.NoError(t, yaml.Unmarshal([]byte(src), &section))
	return section
}

func TestClassifySingleFile(t *testing.T) {
	section := parseSection(t, `Color: colors.yaml`)
	require.Len(t, section.Entries, 1)
	assert.Equal(t, "Color", section.Entries[0].Name)
	assert.Equal(t, SourceSingleFile, section.Entries[0].Source.Kind)
	assert.Equal(t, "colors.yaml", section.Entries[0].Source.File)
}

func TestClassifyInlineLiteral(t *testing.T) {
	section := parseSection(t, `Style: oil painting`)
	require.Len(t, section.Entries, 1)
	assert.Equal(t, SourceInlineLiteral, section.Entries[0].Source.Kind)
	assert.Equal(t, "oil painting", section.Entries[0].Source.Literal)
}

func TestClassifyInlineList(t *testing.T) {
	section := parseSection(t, `
Mood:
  - serene
  - stormy
`)
	src := section.Entries[0].Source
	assert.Equal(t, SourceInlineList, src.Kind)
	assert.Equal(t, []string{"serene", "stormy"}, src.List)
}

func TestClassifyInlineMap(t *testing.T) {
	section := parseSection(t, `
Color:
  red: deep red
  blue: sky blue
`)
	src := section.Entries[0].Source
	assert.Equal(t, SourceInlineMap, src.Kind)
	require.Len(t, src.Pairs, 2)
	assert.Equal(t, Candidate{Key: "red", Text: "deep red"}, src.Pairs[0])
	assert.Equal(t, Candidate{Key: "blue", Text: "sky blue"}, src.Pairs[1])
}

func TestClassifyMultiSource(t *testing.T) {
	section := parseSection(t, `
Color:
  - base.yaml
  - extra: neon pink
`)
	src := section.Entries[0].Source
	require.Equal(t, SourceMultiSource, src.Kind)
	require.Len(t, src.Sources, 2)
	assert.Equal(t, SourceSingleFile, src.Sources[0].Kind)
	assert.Equal(t, SourceInlineMap, src.Sources[1].Kind)
}

func TestClassifyNestedGroup(t *testing.T) {
	section := parseSection(t, `
style:
  painting: painting.yaml
  photo:
    - candid
    - studio
`)
	src := section.Entries[0].Source
	require.Equal(t, SourceNestedGroup, src.Kind)
	require.Len(t, src.Group, 2)
	assert.Equal(t, "painting", src.Group[0].Name)
	assert.Equal(t, SourceSingleFile, src.Group[0].Source.Kind)
	assert.Equal(t, "photo", src.Group[1].Name)
	assert.Equal(t, SourceInlineList, src.Group[1].Source.Kind)
}

func TestClassifyGroupOfFiles(t *testing.T) {
	section := parseSection(t, `
style:
  painting: painting.yaml
  photo: photo.yml
`)
	src := section.Entries[0].Source
	require.Equal(t, SourceNestedGroup, src.Kind)
	assert.Equal(t, SourceSingleFile, src.Group[0].Source.Kind)
	assert.Equal(t, SourceSingleFile, src.Group[1].Source.Kind)
}

func TestClassifyMixedMappingRejected(t *testing.T) {
	var section ImportSection
	err := yaml.Unmarshal([]byte(`
Color:
  red: deep red
  more: extra.yaml
`), &section)
	assert.Error(t, err)
}

func TestClassifyEntryOrderPreserved(t *testing.T) {
	section := parseSection(t, `
Zebra: z.yaml
Apple: a.yaml
Mango: m.yaml
`)
	assert.Equal(t, []string{"Zebra", "Apple", "Mango"}, section.Names())
}

func TestImportValueLookup(t *testing.T) {
	leaf := NewCandidateSet()
	leaf.Add("oil", "oil on canvas")
	value := &ImportValue{Group: []ResolvedEntry{
		{Name: "painting", Value: &ImportValue{Set: leaf}},
	}}

	set, ok := value.Lookup([]string{"painting"})
	require.True(t, ok)
	assert.Equal(t, 1, set.Len())

	_, ok = value.Lookup([]string{"photo"})
	assert.False(t, ok)

	_, ok = value.Lookup(nil)
	assert.False(t, ok, "a group is not itself a candidate set")
}
