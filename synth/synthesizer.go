// Package synth 随机合成送礼对象画像，用于生成训练数据。
package synth

import (
	"math/rand/v2"

	"github.com/rushteam/giftkit/core"
)

// Pools 画像各字段的取值池
type Pools struct {
	Occasions     []string
	Relationships []string
	AgeRanges     []string
	DailyLife     []string
	Interests     []string
}

// DefaultPools 默认取值池，与 feature.DefaultSchema 的枚举一致。
func DefaultPools() Pools {
	return Pools{
		Occasions:     []string{"birthday", "anniversary", "housewarming", "graduation", "thank-you", "holiday", "baby-shower", "other"},
		Relationships: []string{"friend", "partner", "parent", "coworker", "sibling", "child", "other"},
		AgeRanges:     []string{"0-12", "13-17", "18-24", "25-34", "35-44", "45-54", "55+"},
		DailyLife:     []string{"student", "office", "remote_worker", "gamer", "gym", "traveler", "new_parent", "cooking", "outdoors", "creative", "pet_lover", "other"},
		Interests: []string{
			"cooking", "gaming", "travel", "reading", "music", "fitness", "art", "tech",
			"coffee", "tea", "wine", "outdoors", "pets", "photography", "crafts", "books",
			"movies", "sports", "yoga", "gardening", "food", "wellness", "home", "office",
		},
	}
}

// Budget 预算生成范围：
// budget_min ∈ [MinLow, MinHigh]，budget_max ∈ [budget_min+MinSpan, min(Cap, budget_min+MaxSpan)]
type Budget struct {
	MinLow  int
	MinHigh int
	MinSpan int
	MaxSpan int
	Cap     int
}

// DefaultBudget 默认预算范围
func DefaultBudget() Budget {
	return Budget{MinLow: 5, MinHigh: 80, MinSpan: 10, MaxSpan: 100, Cap: 150}
}

// Synthesizer 画像合成器。给定相同的随机源输出完全一致。
type Synthesizer struct {
	Pools        Pools
	Budget       Budget
	MaxInterests int
	MaxDailyLife int
	// Stratify 按场合分层：每个场合生成 max(1, n/len(occasions)) 个画像，再整体打乱
	Stratify bool
}

// NewSynthesizer 使用默认取值池创建合成器
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{
		Pools:        DefaultPools(),
		Budget:       DefaultBudget(),
		MaxInterests: 5,
		MaxDailyLife: 4,
		Stratify:     true,
	}
}

// Generate 生成 n 个画像。分层模式下实际数量为 len(occasions)*max(1, n/len(occasions))。
func (s *Synthesizer) Generate(rng *rand.Rand, n int) ([]*core.Profile, error) {
	if n <= 0 {
		return nil, nil
	}
	if !s.Stratify || len(s.Pools.Occasions) == 0 {
		out := make([]*core.Profile, 0, n)
		for range n {
			p, err := s.Profile(rng, "")
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	}

	perOccasion := max(1, n/len(s.Pools.Occasions))
	out := make([]*core.Profile, 0, perOccasion*len(s.Pools.Occasions))
	for _, occ := range s.Pools.Occasions {
		for range perOccasion {
			p, err := s.Profile(rng, occ)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}

// Profile 生成单个画像；occasion 为空时随机选择。
func (s *Synthesizer) Profile(rng *rand.Rand, occasion string) (*core.Profile, error) {
	if occasion == "" {
		occasion = pick(rng, s.Pools.Occasions)
	}
	relationship := pick(rng, s.Pools.Relationships)
	age := pick(rng, s.Pools.AgeRanges)

	b := s.Budget
	budgetMin := randInclusive(rng, b.MinLow, b.MinHigh)
	budgetMax := randInclusive(rng, budgetMin+b.MinSpan, min(b.Cap, budgetMin+b.MaxSpan))

	interests := sample(rng, s.Pools.Interests, rng.IntN(s.MaxInterests+1))
	dailyLife := sample(rng, s.Pools.DailyLife, rng.IntN(s.MaxDailyLife+1))

	return core.NewProfile(occasion, relationship, age, budgetMin, budgetMax, interests, dailyLife)
}

func pick(rng *rand.Rand, pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rng.IntN(len(pool))]
}

// randInclusive 返回 [lo, hi] 内的均匀整数；hi < lo 时返回 lo。
func randInclusive(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

// sample 无放回抽取 k 个元素
func sample(rng *rand.Rand, pool []string, k int) []string {
	k = min(k, len(pool))
	if k <= 0 {
		return nil
	}
	idx := rng.Perm(len(pool))[:k]
	out := make([]string, k)
	for i, j := range idx {
		out[i] = pool[j]
	}
	return out
}
