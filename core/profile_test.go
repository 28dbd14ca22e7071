package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProfile_DerivedTags(t *testing.T) {
	p, err := NewProfile(" Birthday ", "friend", "18-24", 30, 90,
		[]string{"Tech", "board  games", "tech", ""}, []string{"gym", "friend"})
	require.NoError(t, err)

	assert.Equal(t, []string{"tech", "board_games"}, p.Interests)
	assert.Equal(t, []string{"18-24", "birthday", "board_games", "friend", "gym", "tech"}, p.DerivedTags())
	assert.Equal(t, 2, p.InterestCount())
	assert.Equal(t, 2, p.DailyLifeCount())
}

func TestNewProfile_EmptyCategoricalsSkipped(t *testing.T) {
	p, err := NewProfile("", "", "", 0, 10, []string{"music"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"music"}, p.DerivedTags())
}

func TestNewProfile_InvertedBudget(t *testing.T) {
	_, err := NewProfile("birthday", "friend", "18-24", 90, 30, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "budget_min 90 > budget_max 30")
}
