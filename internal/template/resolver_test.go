package template

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/promptweaver/promptweaver/internal/errors"
	"github.com/promptweaver/promptweaver/internal/models"
)

func newSet(pairs ...string) *models.CandidateSet {
	set := models.NewCandidateSet()
	for i := 0; i+1 < len(pairs); i += 2 {
		set.Add(pairs[i], pairs[i+1])
	}
	return set
}

func testContext() *models.ResolvedContext {
	return &models.ResolvedContext{
		Imports: []models.ResolvedEntry{
			{Name: "Color", Value: &models.ImportValue{Set: newSet("red", "deep red", "blue", "sky blue", "green", "moss green")}},
			{Name: "Animal", Value: &models.ImportValue{Set: newSet("cat", "a cat", "dog", "a dog")}},
			{Name: "style", Value: &models.ImportValue{Group: []models.ResolvedEntry{
				{Name: "painting", Value: &models.ImportValue{Set: newSet("oil", "oil on canvas")}},
			}}},
		},
		Chunks: map[string]*models.ChunkConfig{
			"Scenery": {Text: "a {Color} landscape"},
			"Framed":  {Text: "framed {Subject}"},
		},
		Defaults: map[string]string{
			"Quality": "high detail",
		},
	}
}

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestResolvePlaceholderLeavesMarker(t *testing.T) {
	r := NewResolver(testContext(), testRNG())
	resolved, err := r.Resolve("a {Color} {Animal}", "")
	require.NoError(t, err)

	assert.Equal(t, "a {Color} {Animal}", resolved.Text)
	require.Len(t, resolved.Placeholders, 2)
	assert.Equal(t, "Color", resolved.Placeholders[0].Name)
	assert.Equal(t, "Animal", resolved.Placeholders[1].Name)
	assert.Equal(t, 3, resolved.Placeholders[0].Candidates.Len())
}

func TestResolveDefaultsSubstituteInline(t *testing.T) {
	r := NewResolver(testContext(), testRNG())
	resolved, err := r.Resolve("{Quality}, {Color}", "")
	require.NoError(t, err)

	assert.Equal(t, "high detail, {Color}", resolved.Text)
	require.Len(t, resolved.Placeholders, 1)
	assert.Equal(t, "Color", resolved.Placeholders[0].Name)
}

func TestResolveDottedImport(t *testing.T) {
	r := NewResolver(testContext(), testRNG())
	resolved, err := r.Resolve("{style.painting}", "")
	require.NoError(t, err)

	assert.Equal(t, "{style.painting}", resolved.Text)
	require.Len(t, resolved.Placeholders, 1)
	keys := resolved.Placeholders[0].Candidates.Keys()
	assert.Equal(t, []string{"oil"}, keys)
}

func TestResolveIndexSelector(t *testing.T) {
	r := NewResolver(testContext(), testRNG())
	resolved, err := r.Resolve("{Color[#0,2]}", "")
	require.NoError(t, err)

	require.Len(t, resolved.Placeholders, 1)
	assert.Equal(t, []string{"red", "green"}, resolved.Placeholders[0].Candidates.Keys())
}

func TestResolveRangeSelector(t *testing.T) {
	r := NewResolver(testContext(), testRNG())
	resolved, err := r.Resolve("{Color[#0-1]}", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"red", "blue"}, resolved.Placeholders[0].Candidates.Keys())
}

func TestResolveKeySelector(t *testing.T) {
	r := NewResolver(testContext(), testRNG())
	resolved, err := r.Resolve("{Color[blue,red]}", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"blue", "red"}, resolved.Placeholders[0].Candidates.Keys())
}

func TestResolveRandomPickSelector(t *testing.T) {
	r := NewResolver(testContext(), testRNG())
	resolved, err := r.Resolve("{Color[2]}", "")
	require.NoError(t, err)

	set := resolved.Placeholders[0].Candidates
	assert.Equal(t, 2, set.Len())
	for _, key := range set.Keys() {
		_, ok := testContext().Imports[0].Value.Set.Get(key)
		assert.True(t, ok, "picked key %q must come from the source set", key)
	}
}

func TestResolveWeightSelector(t *testing.T) {
	r := NewResolver(testContext(), testRNG())
	resolved, err := r.Resolve("{Color[$3]} {Animal}", "")
	require.NoError(t, err)

	weights := resolved.WeightMap()
	assert.Equal(t, 3, weights["Color"])
	assert.Equal(t, 1, weights["Animal"])
}

func TestResolveSelectorErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		code apperrors.ErrorCode
	}{
		{"index out of range", "{Color[#9]}", apperrors.ErrCodeIndexOutOfRange},
		{"pick count too large", "{Color[7]}", apperrors.ErrCodeIndexOutOfRange},
		{"unknown key", "{Color[purple]}", apperrors.ErrCodeUnknownKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(testContext(), testRNG())
			_, err := r.Resolve(tt.text, "")
			require.Error(t, err)
			appErr := apperrors.GetAppError(err)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestResolveUnresolvedPlaceholder(t *testing.T) {
	r := NewResolver(testContext(), testRNG())
	_, err := r.Resolve("{Colour}", "")
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeUnresolvedPlaceholder, appErr.Code)
	assert.Contains(t, appErr.Message, "Colour")
	// the near-miss must be suggested
	assert.Contains(t, appErr.Details, "Color")
}

func TestResolveChunkCall(t *testing.T) {
	r := NewResolver(testContext(), testRNG())
	resolved, err := r.Resolve("@Scenery at dusk", "")
	require.NoError(t, err)

	assert.Equal(t, "a {Color} landscape at dusk", resolved.Text)
	require.Len(t, resolved.Placeholders, 1)
	assert.Equal(t, "Color", resolved.Placeholders[0].Name)
}

func TestResolveParameterizedChunkCall(t *testing.T) {
	r := NewResolver(testContext(), testRNG())
	resolved, err := r.Resolve("@{Framed with Subject: Color[red]}", "")
	require.NoError(t, err)

	assert.Equal(t, "framed deep red", resolved.Text)
	assert.Empty(t, resolved.Placeholders)
}

func TestResolveChunkCycle(t *testing.T) {
	ctx := testContext()
	ctx.Chunks["A"] = &models.ChunkConfig{Text: "@B"}
	ctx.Chunks["B"] = &models.ChunkConfig{Text: "@A"}

	r := NewResolver(ctx, testRNG())
	_, err := r.Resolve("@A", "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeCircularInheritance, apperrors.GetAppError(err).Code)
}

func TestResolveLiteralAt(t *testing.T) {
	r := NewResolver(testContext(), testRNG())

	// an @ not followed by an identifier passes through as text
	resolved, err := r.Resolve("80% detail @ {Color}", "")
	require.NoError(t, err)
	assert.Equal(t, "80% detail @ {Color}", resolved.Text)

	// an @ followed by an identifier is always a chunk reference
	_, err = r.Resolve("user@example.com", "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnresolvedPlaceholder, apperrors.GetAppError(err).Code)
}

func TestResolveSharedAccumulator(t *testing.T) {
	r := NewResolver(testContext(), testRNG())
	resolved, err := r.Resolve("{Color}", "not {Color}")
	require.NoError(t, err)

	assert.Equal(t, "{Color}", resolved.Text)
	assert.Equal(t, "not {Color}", resolved.NegativeText)
	// one shared placeholder entry, not two
	assert.Len(t, resolved.Placeholders, 1)
}

func TestResolveConflictingSelectors(t *testing.T) {
	r := NewResolver(testContext(), testRNG())
	_, err := r.Resolve("{Color[#0]} {Color[#1]}", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting selectors")
}

func TestResolveRepeatedBareOccurrence(t *testing.T) {
	r := NewResolver(testContext(), testRNG())
	resolved, err := r.Resolve("{Color[#0]} and {Color}", "")
	require.NoError(t, err)
	assert.Len(t, resolved.Placeholders, 1)
	assert.Equal(t, []string{"red"}, resolved.Placeholders[0].Candidates.Keys())
}

func TestExtractRefs(t *testing.T) {
	refs, errs := ExtractRefs("a {Color} @Scenery @{Framed with Subject: Animal[#0]}")
	require.Empty(t, errs)

	assert.Equal(t, []Ref{
		{Name: "Color"},
		{Name: "Scenery", IsChunk: true},
		{Name: "Framed", IsChunk: true},
		{Name: "Animal"},
	}, refs)
}

func TestExtractRefsReportsSyntaxErrors(t *testing.T) {
	_, errs := ExtractRefs("{Color[#0} {Animal}")
	assert.NotEmpty(t, errs)
}
