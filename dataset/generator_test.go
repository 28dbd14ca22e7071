package dataset

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/giftkit/core"
	"github.com/rushteam/giftkit/feature"
	"github.com/rushteam/giftkit/pipeline"
	"github.com/rushteam/giftkit/rank"
	"github.com/rushteam/giftkit/recall"
	"github.com/rushteam/giftkit/rerank"
)

const priceInBudgetIdx = 30

func product(t *testing.T, id, title, category string, tags []string, priceMin, priceMax int) *core.Product {
	t.Helper()
	p, err := core.NewProduct(id, title, category, tags, priceMin, priceMax)
	require.NoError(t, err)
	return p
}

func fillers(t *testing.T, prefix string, n, priceMin, priceMax int) []*core.Product {
	out := make([]*core.Product, 0, n)
	for i := range n {
		out = append(out, product(t, fmt.Sprintf("%s%02d", prefix, i), "filler", "misc", []string{"zzz"}, priceMin, priceMax))
	}
	return out
}

// profileWithTags 场合、关系、年龄留空，派生标签恰好等于 tags。
func profileWithTags(t *testing.T, budgetMin, budgetMax int, tags []string) *core.Profile {
	t.Helper()
	p, err := core.NewProfile("", "", "", budgetMin, budgetMax, tags, nil)
	require.NoError(t, err)
	return p
}

func newGenerator(t *testing.T, products []*core.Product, seed uint64) *Generator {
	t.Helper()
	idx := recall.NewBudgetIndex(products)
	enc, err := feature.NewEncoder(feature.DefaultSchema(), feature.BuildCategoryVocabulary(products))
	require.NoError(t, err)
	p := &pipeline.Pipeline{Nodes: []pipeline.Node{
		&recall.BudgetRecall{Source: idx},
		&rank.KeywordNode{Scorer: rank.NewKeywordScorer()},
		&rerank.LabelNode{Selector: rerank.NewSelector()},
	}}
	g := NewGenerator(p, enc, seed)
	g.Monitor = NewMonitor()
	return g
}

func TestGenerator_P1Scenario(t *testing.T) {
	p1 := product(t, "p1", "wireless earbuds", "electronics", []string{"tech", "music"}, 40, 80)
	prof := profileWithTags(t, 30, 90, []string{"tech"})
	ctx := context.Background()

	t.Run("too few eligible candidates", func(t *testing.T) {
		catalog := append([]*core.Product{p1}, fillers(t, "hi", 9, 200, 300)...)
		g := newGenerator(t, catalog, 42)

		res, err := g.ProcessProfile(ctx, 0, prof)
		require.NoError(t, err)
		assert.True(t, res.Discarded)
		assert.Equal(t, 1, res.Candidates)
		assert.Empty(t, res.Rows)
	})

	t.Run("p1 is a positive", func(t *testing.T) {
		catalog := append([]*core.Product{p1}, fillers(t, "hi", 9, 200, 300)...)
		catalog = append(catalog, fillers(t, "ok", 10, 35, 60)...)
		g := newGenerator(t, catalog, 42)

		res, err := g.ProcessProfile(ctx, 0, prof)
		require.NoError(t, err)
		require.False(t, res.Discarded)
		assert.Equal(t, 11, res.Candidates)

		var found bool
		for _, row := range res.Rows {
			if row.ProductID == "p1" {
				found = true
				assert.Equal(t, core.LabelPositive, row.Label)
				assert.Equal(t, 1.0, row.Features[priceInBudgetIdx])
			}
		}
		assert.True(t, found)
		assert.Len(t, res.Rows, 11, "6 positives + 5 negatives")
	})
}

func TestGenerator_EmptyTags(t *testing.T) {
	g := newGenerator(t, fillers(t, "f", 30, 20, 40), 7)
	prof := profileWithTags(t, 10, 50, nil)

	res, err := g.ProcessProfile(context.Background(), 0, prof)
	require.NoError(t, err)
	require.False(t, res.Discarded)

	positives := 0
	tagOverlapIdx := priceInBudgetIdx - 1
	for _, row := range res.Rows {
		if row.Label == core.LabelPositive {
			positives++
		}
		assert.Equal(t, 0.0, row.Features[tagOverlapIdx])
	}
	assert.Equal(t, rerank.DefaultTopPositive, positives)
	assert.Len(t, res.Rows, 6+20)
}

func TestGenerator_Boundary(t *testing.T) {
	prof := profileWithTags(t, 10, 50, []string{"zzz"})
	ctx := context.Background()

	res, err := newGenerator(t, fillers(t, "f", 10, 20, 40), 1).ProcessProfile(ctx, 0, prof)
	require.NoError(t, err)
	assert.True(t, res.Discarded)

	res, err = newGenerator(t, fillers(t, "f", 11, 20, 40), 1).ProcessProfile(ctx, 0, prof)
	require.NoError(t, err)
	assert.False(t, res.Discarded)
	assert.Len(t, res.Rows, 11)
}

func TestGenerator_Run(t *testing.T) {
	catalog := append(fillers(t, "a", 40, 10, 60), fillers(t, "b", 40, 100, 140)...)
	catalog = append(catalog, product(t, "gadget", "tech gadget", "electronics", []string{"tech"}, 20, 30))
	profiles := []*core.Profile{
		profileWithTags(t, 10, 60, []string{"tech"}),
		profileWithTags(t, 5, 8, nil), // 没有候选
		profileWithTags(t, 90, 150, []string{"zzz"}),
		profileWithTags(t, 15, 120, []string{"music"}),
	}

	g := newGenerator(t, catalog, 42)
	g.Workers = 3
	sink := &MemorySink{}
	stats, err := g.Run(context.Background(), profiles, sink)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Profiles)
	assert.Equal(t, 3, stats.Emitted)
	assert.Equal(t, 1, stats.Discarded)
	assert.Equal(t, 18, stats.Positives)
	assert.Equal(t, 60, stats.Negatives)
	assert.Equal(t, stats.Positives+stats.Negatives, stats.Rows)
	assert.Len(t, sink.Rows, stats.Rows)
	assert.Equal(t, g.Encoder.Schema().Header(), sink.Header)

	// 按画像顺序输出；同一画像正负样本不相交
	lastSeq := -1
	perProfile := map[int]map[string]int{}
	for _, row := range sink.Rows {
		assert.GreaterOrEqual(t, row.ProfileSeq, lastSeq)
		lastSeq = row.ProfileSeq
		assert.Len(t, row.Features, len(sink.Header)-2)
		if perProfile[row.ProfileSeq] == nil {
			perProfile[row.ProfileSeq] = map[string]int{}
		}
		perProfile[row.ProfileSeq][row.ProductID]++
	}
	for seq, ids := range perProfile {
		for id, n := range ids {
			assert.Equal(t, 1, n, "profile %d product %s", seq, id)
		}
	}
	assert.NotContains(t, perProfile, 1)

	assert.Equal(t, 3.0, testutil.ToFloat64(g.Monitor.Profiles.WithLabelValues("emitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(g.Monitor.Profiles.WithLabelValues("discarded")))
	assert.Equal(t, 18.0, testutil.ToFloat64(g.Monitor.Rows.WithLabelValues("positive")))
}

func TestGenerator_WorkerCountIndependent(t *testing.T) {
	catalog := fillers(t, "f", 60, 10, 90)
	profiles := make([]*core.Profile, 0, 20)
	for i := range 20 {
		profiles = append(profiles, profileWithTags(t, 10+i, 60+i, []string{"zzz"}))
	}

	run := func(workers int, seed uint64) []core.Row {
		g := newGenerator(t, catalog, seed)
		g.Workers = workers
		sink := &MemorySink{}
		_, err := g.Run(context.Background(), profiles, sink)
		require.NoError(t, err)
		return sink.Rows
	}

	one := run(1, 42)
	assert.Equal(t, one, run(8, 42))
	assert.NotEqual(t, one, run(1, 43), "negative sample depends on seed")
}

type failingSink struct{ MemorySink }

func (s *failingSink) Write(core.Row) error { return errors.New("disk full") }

func TestGenerator_SinkError(t *testing.T) {
	g := newGenerator(t, fillers(t, "f", 20, 10, 20), 1)
	_, err := g.Run(context.Background(), []*core.Profile{profileWithTags(t, 10, 20, nil)}, &failingSink{})
	assert.EqualError(t, err, "disk full")
}

func TestGenerator_Canceled(t *testing.T) {
	g := newGenerator(t, fillers(t, "f", 20, 10, 20), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Run(ctx, []*core.Profile{profileWithTags(t, 10, 20, nil)}, &MemorySink{})
	assert.ErrorIs(t, err, context.Canceled)
}
