package imports

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	apperrors "github.com/promptweaver/promptweaver/internal/errors"
	"github.com/promptweaver/promptweaver/internal/models"
	"github.com/promptweaver/promptweaver/internal/storage"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func parseSection(t *testing.T, src string) models.ImportSection {
	t.Helper()
	var section models.ImportSection
	require.NoError(t, yaml.Unmarshal([]byte(src), &section))
	return section
}

func TestResolveFileImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "colors.yaml", "red: deep red\nblue: sky blue\n")

	section := parseSection(t, `Color: colors.yaml`)
	entries, err := NewResolver(storage.NewStore()).Resolve(section, dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	set := entries[0].Value.Set
	assert.Equal(t, []string{"red", "blue"}, set.Keys())
	text, _ := set.Get("blue")
	assert.Equal(t, "sky blue", text)
}

func TestResolveInlineShapes(t *testing.T) {
	section := parseSection(t, `
Literal: oil painting
List:
  - serene
  - stormy
Map:
  a: first
  b: second
`)
	entries, err := NewResolver(storage.NewStore()).Resolve(section, t.TempDir())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, 1, entries[0].Value.Set.Len())
	text, _ := entries[0].Value.Set.Get(ContentKey("oil painting"))
	assert.Equal(t, "oil painting", text)

	assert.Equal(t, 2, entries[1].Value.Set.Len())
	assert.Equal(t, []string{"a", "b"}, entries[2].Value.Set.Keys())
}

func TestResolveMultiSourceOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "red: deep red\n")

	section := parseSection(t, `
Color:
  - base.yaml
  - neon: neon pink
`)
	entries, err := NewResolver(storage.NewStore()).Resolve(section, dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"red", "neon"}, entries[0].Value.Set.Keys())
}

func TestResolveDuplicateKeyCollision(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "red: deep red\n")
	writeFile(t, dir, "b.yaml", "red: another red\n")

	section := parseSection(t, `
Color:
  - a.yaml
  - b.yaml
`)
	_, err := NewResolver(storage.NewStore()).Resolve(section, dir)
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeDuplicateKey, appErr.Code)
	assert.Contains(t, appErr.Message, "red")
}

func TestResolveIdenticalLiteralsDedupe(t *testing.T) {
	section := parseSection(t, `
Mood:
  - serene
  - serene
  - stormy
`)
	entries, err := NewResolver(storage.NewStore()).Resolve(section, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 2, entries[0].Value.Set.Len())
}

func TestResolveNestedGroup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "painting.yaml", "oil: oil on canvas\n")

	section := parseSection(t, `
style:
  painting: painting.yaml
  photo:
    - candid
`)
	entries, err := NewResolver(storage.NewStore()).Resolve(section, dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	value := entries[0].Value
	require.Nil(t, value.Set)
	require.Len(t, value.Group, 2)

	set, ok := value.Lookup([]string{"painting"})
	require.True(t, ok)
	assert.Equal(t, []string{"oil"}, set.Keys())
}

func TestResolveDuplicateKeyInsideOneFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", "red: one\nred: two\n")

	section := parseSection(t, `Color: bad.yaml`)
	_, err := NewResolver(storage.NewStore()).Resolve(section, dir)
	assert.Error(t, err)
}

func TestResolveMissingFile(t *testing.T) {
	section := parseSection(t, `Color: missing.yaml`)
	_, err := NewResolver(storage.NewStore()).Resolve(section, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeFileNotFound, apperrors.GetAppError(err).Code)
}

func TestContentKeyStable(t *testing.T) {
	assert.Equal(t, ContentKey("serene"), ContentKey("serene"))
	assert.NotEqual(t, ContentKey("serene"), ContentKey("stormy"))
	assert.Len(t, ContentKey("serene"), 8)
}
