package validation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptweaver/promptweaver/internal/storage"
)

type tree struct {
	dir string
}

func newTree(t *testing.T) *tree {
	return &tree{dir: t.TempDir()}
}

func (tr *tree) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(tr.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func validate(t *testing.T, entry string) *ValidationResult {
	t.Helper()
	vr, err := New(storage.NewStore()).Validate(entry)
	require.NoError(t, err)
	return vr
}

func TestValidTree(t *testing.T) {
	tr := newTree(t)
	tr.write(t, "colors.yaml", "red: deep red\nblue: sky blue\n")
	tr.write(t, "base.yaml", `
version: "1"
name: base
template: "masterpiece, {prompt}"
`)
	entry := tr.write(t, "scene.yaml", `
version: "1"
name: scene
implements: base.yaml
prompt_template: "a {Color} forest"
imports:
  Color: colors.yaml
`)

	vr := validate(t, entry)
	assert.True(t, vr.Valid)
	assert.Empty(t, vr.Errors)
	// the entry and its parent; candidate files are stat-checked only
	assert.Len(t, vr.Checked, 2)
}

func TestStructuralErrorsAccumulate(t *testing.T) {
	tr := newTree(t)
	entry := tr.write(t, "bad.yaml", "template: \"no injection\"\n")

	vr := validate(t, entry)
	assert.False(t, vr.Valid)
	// missing version, missing name, missing {prompt}
	assert.Len(t, vr.Errors, 3)
	for _, e := range vr.Errors {
		assert.Equal(t, "structure", e.Kind)
	}
}

func TestMissingReferencedFile(t *testing.T) {
	tr := newTree(t)
	entry := tr.write(t, "scene.yaml", `
version: "1"
name: scene
prompt_template: "a {Color} forest"
imports:
  Color: colors.yaml
`)

	vr := validate(t, entry)
	require.False(t, vr.Valid)
	require.Len(t, vr.Errors, 1)
	assert.Equal(t, "path", vr.Errors[0].Kind)
	assert.Equal(t, "imports.Color", vr.Errors[0].Field)
	assert.Contains(t, vr.Errors[0].Message, "colors.yaml")
}

func TestAbsolutePathRejected(t *testing.T) {
	tr := newTree(t)
	entry := tr.write(t, "scene.yaml", `
version: "1"
name: scene
prompt_template: "x"
implements: /etc/base.yaml
`)

	vr := validate(t, entry)
	require.False(t, vr.Valid)
	found := false
	for _, e := range vr.Errors {
		if e.Field == "implements" {
			found = true
			assert.Contains(t, e.Message, "absolute path")
		}
	}
	assert.True(t, found)
}

func TestErrorsAcrossFilesAccumulate(t *testing.T) {
	tr := newTree(t)
	tr.write(t, "base.yaml", "template: \"broken\"\n")
	entry := tr.write(t, "scene.yaml", `
version: "1"
name: scene
implements: base.yaml
prompt_template: "a {Missing} forest"
`)

	vr := validate(t, entry)
	require.False(t, vr.Valid)

	files := make(map[string]bool)
	for _, e := range vr.Errors {
		files[filepath.Base(e.File)] = true
	}
	assert.True(t, files["base.yaml"], "findings in the parent must be reported")
}

func TestInheritanceKindMismatch(t *testing.T) {
	tr := newTree(t)
	tr.write(t, "chunk.yaml", `
version: "1"
name: c
chunk_template: "x"
`)
	entry := tr.write(t, "scene.yaml", `
version: "1"
name: scene
implements: chunk.yaml
prompt_template: "y"
`)

	vr := validate(t, entry)
	require.False(t, vr.Valid)
	found := false
	for _, e := range vr.Errors {
		if e.Kind == "inheritance" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestImportCollisionReported(t *testing.T) {
	tr := newTree(t)
	tr.write(t, "a.yaml", "red: one\n")
	tr.write(t, "b.yaml", "red: two\n")
	entry := tr.write(t, "scene.yaml", `
version: "1"
name: scene
prompt_template: "a {Color} forest"
imports:
  Color:
    - a.yaml
    - b.yaml
`)

	vr := validate(t, entry)
	require.False(t, vr.Valid)
	found := false
	for _, e := range vr.Errors {
		if e.Kind == "imports" {
			found = true
			assert.Contains(t, e.Message, "red")
		}
	}
	assert.True(t, found)
}

func TestUnknownReferenceIsErrorWithoutParent(t *testing.T) {
	tr := newTree(t)
	entry := tr.write(t, "scene.yaml", `
version: "1"
name: scene
prompt_template: "a {Nothing} forest"
`)

	vr := validate(t, entry)
	require.False(t, vr.Valid)
	require.Len(t, vr.Errors, 1)
	assert.Equal(t, "template", vr.Errors[0].Kind)
	assert.Contains(t, vr.Errors[0].Message, "Nothing")
}

func TestUnknownReferenceIsWarningWithParent(t *testing.T) {
	tr := newTree(t)
	tr.write(t, "base.yaml", `
version: "1"
name: base
template: "{prompt}"
defaults:
  FromParent: value
`)
	entry := tr.write(t, "scene.yaml", `
version: "1"
name: scene
implements: base.yaml
prompt_template: "a {FromParent} forest"
`)

	vr := validate(t, entry)
	assert.True(t, vr.Valid)
	assert.NotEmpty(t, vr.Warnings)
}

func TestFilenameKeysMustResolve(t *testing.T) {
	tr := newTree(t)
	tr.write(t, "colors.yaml", "red: deep red\n")
	entry := tr.write(t, "scene.yaml", `
version: "1"
name: scene
prompt_template: "a {Color} forest"
imports:
  Color: colors.yaml
output:
  filename_keys:
    - Color
    - Mood
`)

	vr := validate(t, entry)
	require.False(t, vr.Valid)
	require.Len(t, vr.Errors, 1)
	assert.Equal(t, "output.filename_keys", vr.Errors[0].Field)
	assert.Contains(t, vr.Errors[0].Message, "Mood")
}

func TestReservedPlaceholdersNotFlagged(t *testing.T) {
	tr := newTree(t)
	entry := tr.write(t, "base.yaml", `
version: "1"
name: base
template: "q, {prompt}, {negprompt}"
`)

	vr := validate(t, entry)
	assert.True(t, vr.Valid)
}

func TestResultSerializesStably(t *testing.T) {
	tr := newTree(t)
	entry := tr.write(t, "bad.yaml", "template: \"no injection\"\n")

	vr := validate(t, entry)
	data, err := json.Marshal(vr)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"valid":false`)
	assert.Contains(t, string(data), `"checked_files"`)
}

func TestErrorsSortedByFile(t *testing.T) {
	tr := newTree(t)
	tr.write(t, "a.yaml", "template: \"broken\"\n")
	tr.write(t, "z.yaml", "template: \"broken\"\n")
	entry := tr.write(t, "scene.yaml", `
version: "1"
name: scene
prompt_template: "x"
chunks:
  Za: z.yaml
  Ab: a.yaml
`)

	vr := validate(t, entry)
	require.False(t, vr.Valid)
	for i := 1; i < len(vr.Errors); i++ {
		assert.LessOrEqual(t, vr.Errors[i-1].File, vr.Errors[i].File)
	}
}
