package synth

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

func TestSynthesizer_Profile(t *testing.T) {
	s := NewSynthesizer()
	rng := newRand(1)
	for range 500 {
		p, err := s.Profile(rng, "")
		require.NoError(t, err)

		assert.Contains(t, s.Pools.Occasions, p.Occasion)
		assert.Contains(t, s.Pools.Relationships, p.Relationship)
		assert.Contains(t, s.Pools.AgeRanges, p.AgeRange)
		assert.GreaterOrEqual(t, p.BudgetMin, 5)
		assert.LessOrEqual(t, p.BudgetMin, 80)
		assert.GreaterOrEqual(t, p.BudgetMax, p.BudgetMin+10)
		assert.LessOrEqual(t, p.BudgetMax, min(150, p.BudgetMin+100))
		assert.LessOrEqual(t, p.InterestCount(), 5)
		assert.LessOrEqual(t, p.DailyLifeCount(), 4)
		assert.Contains(t, p.DerivedTags(), p.Occasion)
	}
}

func TestSynthesizer_Stratified(t *testing.T) {
	s := NewSynthesizer()
	profiles, err := s.Generate(newRand(7), 500)
	require.NoError(t, err)

	// 500/8 = 62 per occasion
	require.Len(t, profiles, 62*8)
	counts := map[string]int{}
	for _, p := range profiles {
		counts[p.Occasion]++
	}
	for _, occ := range s.Pools.Occasions {
		assert.Equal(t, 62, counts[occ], occ)
	}
}

func TestSynthesizer_StratifiedSmallN(t *testing.T) {
	s := NewSynthesizer()
	profiles, err := s.Generate(newRand(7), 3)
	require.NoError(t, err)
	assert.Len(t, profiles, 8, "at least one per occasion")
}

func TestSynthesizer_Unstratified(t *testing.T) {
	s := NewSynthesizer()
	s.Stratify = false
	profiles, err := s.Generate(newRand(7), 13)
	require.NoError(t, err)
	assert.Len(t, profiles, 13)

	none, err := s.Generate(newRand(7), 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSynthesizer_Deterministic(t *testing.T) {
	s := NewSynthesizer()
	a, err := s.Generate(newRand(42), 40)
	require.NoError(t, err)
	b, err := s.Generate(newRand(42), 40)
	require.NoError(t, err)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].String(), b[i].String())
	}
}
