package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/giftkit/core"
)

func newTestEncoder(t *testing.T, vocab ...string) *Encoder {
	t.Helper()
	enc, err := NewEncoder(DefaultSchema(), NewCategoryVocabulary(vocab))
	require.NoError(t, err)
	return enc
}

func TestEncoder_Encode(t *testing.T) {
	enc := newTestEncoder(t, "electronics", "home")
	p1 := mustProduct(t, "p1", "wireless earbuds", "electronics", []string{"tech", "music"}, 40, 80)
	prof, err := core.NewProfile("birthday", "friend", "18-24", 30, 90, []string{"tech"}, nil)
	require.NoError(t, err)

	vec, err := enc.Encode(prof, p1)
	require.NoError(t, err)
	require.Len(t, vec, 31)

	want := []float64{
		1, 0, 0, 0, 0, 0, 0, 0, // occasion
		1, 0, 0, 0, 0, 0, 0, // relationship
		0, 0, 1, 0, 0, 0, 0, // age
		0.2, 0.6, 0.2, 0, // budget_min, budget_max, interests, daily_life
		0,          // category_id
		0.08, 0.16, // price_min, price_max
		0.2, // tag_overlap
		1,   // price_in_budget
	}
	assert.InDeltaSlice(t, want, vec, 1e-12)
}

func TestEncoder_Clamp(t *testing.T) {
	enc := newTestEncoder(t)
	p := mustProduct(t, "lux", "", "", []string{"a", "b", "c", "d", "e", "f", "g"}, 900, 1200)
	prof, err := core.NewProfile("holiday", "parent", "55+", 200, 400,
		[]string{"a", "b", "c", "d", "e", "f"}, []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)

	vec, err := enc.Encode(prof, p)
	require.NoError(t, err)
	for _, i := range []int{22, 23, 24, 25, 27, 28, 29} {
		assert.Equal(t, 1.0, vec[i], "feature %s", enc.Schema().FeatureNames[i])
	}
	assert.Equal(t, 0.0, vec[26], "category_id of empty category")
}

func TestEncoder_PriceInBudget(t *testing.T) {
	enc := newTestEncoder(t)
	prof, err := core.NewProfile("birthday", "friend", "18-24", 30, 90, nil, nil)
	require.NoError(t, err)

	tests := []struct {
		name     string
		min, max int
		want     float64
	}{
		{name: "inside", min: 40, max: 80, want: 1},
		{name: "touches lower bound", min: 10, max: 30, want: 1},
		{name: "touches upper bound", min: 90, max: 120, want: 1},
		{name: "below", min: 5, max: 29, want: 0},
		{name: "above", min: 91, max: 100, want: 0},
		{name: "inverted range", min: 60, max: 20, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustProduct(t, "x", "", "", nil, tt.min, tt.max)
			vec, err := enc.Encode(prof, p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, vec[len(vec)-1])
			assert.Equal(t, p.InBudget(prof.BudgetMin, prof.BudgetMax), tt.want == 1)
		})
	}
}

func TestEncoder_UnknownEnumerationMapsToZero(t *testing.T) {
	enc := newTestEncoder(t)
	prof, err := core.NewProfile("wedding", "neighbor", "100+", 10, 20, nil, nil)
	require.NoError(t, err)
	p := mustProduct(t, "x", "", "", nil, 10, 20)

	vec, err := enc.Encode(prof, p)
	require.NoError(t, err)
	assert.Equal(t, 1.0, vec[0])
	assert.Equal(t, 1.0, vec[8])
	assert.Equal(t, 1.0, vec[15])
}

func TestEncoder_Deterministic(t *testing.T) {
	enc := newTestEncoder(t, "audio", "electronics")
	p := mustProduct(t, "p", "Noise Cancelling Headphones", "electronics|audio", []string{"music", "travel"}, 50, 150)
	prof, err := core.NewProfile("graduation", "sibling", "25-34", 40, 140, []string{"music"}, []string{"traveler"})
	require.NoError(t, err)

	a, err := enc.Encode(prof, p)
	require.NoError(t, err)
	b, err := enc.Encode(prof, p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1.0, a[26], "first category token in field order")
}

func TestNewEncoder_SchemaMismatch(t *testing.T) {
	s := DefaultSchema()
	s.FeatureNames = s.FeatureNames[:30]
	_, err := NewEncoder(s, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSchemaMismatch)
}

func TestNewEncoder_ReorderedFeatureNames(t *testing.T) {
	s := DefaultSchema()
	n := len(s.FeatureNames)
	s.FeatureNames[0], s.FeatureNames[n-1] = s.FeatureNames[n-1], s.FeatureNames[0]

	_, err := NewEncoder(s, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "price_in_budget")
}

func TestEncoder_EncodeItem(t *testing.T) {
	enc := newTestEncoder(t)
	prof, err := core.NewProfile("birthday", "friend", "18-24", 30, 90, nil, nil)
	require.NoError(t, err)
	item := core.NewItem(mustProduct(t, "p9", "", "", nil, 40, 50))
	item.Label = core.LabelPositive

	row, err := enc.EncodeItem(7, prof, item)
	require.NoError(t, err)
	assert.Equal(t, 7, row.ProfileSeq)
	assert.Equal(t, "p9", row.ProductID)
	assert.Equal(t, core.LabelPositive, row.Label)
	assert.Len(t, row.Features, enc.Width())
}
