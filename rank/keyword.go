package rank

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/rushteam/giftkit/core"
	"github.com/rushteam/giftkit/pipeline"
	"github.com/rushteam/giftkit/pkg/utils"
)

// Scorer 计算 (profile 派生标签, 商品) 的相关性分数。
type Scorer interface {
	Score(tags []string, p *core.Product) int
}

// 默认权重。
const (
	DefaultTagWeight      = 3
	DefaultTitleWeight    = 2
	DefaultCategoryWeight = 2
)

// KeywordScorer 是关键词重叠打分，同时也是样本标签的生成规则（不是学习出来的估计）。
//
//	score = Σ_t [TagWeight      若 t 与任一商品标签双向子串匹配]
//	      +     [TitleWeight    若 t 是 title 的子串]
//	      +     [CategoryWeight 若 t 是 category 的子串]
//
// 不按标签数归一化：标签越多的画像分数天然越高。
type KeywordScorer struct {
	TagWeight      int
	TitleWeight    int
	CategoryWeight int
}

// NewKeywordScorer 使用默认权重 3/2/2。
func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{
		TagWeight:      DefaultTagWeight,
		TitleWeight:    DefaultTitleWeight,
		CategoryWeight: DefaultCategoryWeight,
	}
}

// Score 纯函数，无随机性。
func (s *KeywordScorer) Score(tags []string, p *core.Product) int {
	if p == nil {
		return 0
	}
	score := 0
	for _, t := range tags {
		if t == "" {
			continue
		}
		if p.MatchesTag(t) {
			score += s.TagWeight
		}
		if strings.Contains(p.Title, t) {
			score += s.TitleWeight
		}
		if strings.Contains(p.Category, t) {
			score += s.CategoryWeight
		}
	}
	return score
}

var _ Scorer = (*KeywordScorer)(nil)

// KeywordNode 是排序 Node：为每个候选打分，并按分数稳定降序排列。
// 同分保持召回顺序，不引入二级排序键。
type KeywordNode struct {
	Scorer Scorer
}

func (n *KeywordNode) Name() string        { return "rank.keyword" }
func (n *KeywordNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *KeywordNode) Process(
	_ context.Context,
	pctx *core.ProfileContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 || pctx == nil || pctx.Profile == nil {
		return items, nil
	}
	scorer := n.Scorer
	if scorer == nil {
		scorer = NewKeywordScorer()
	}
	tags := pctx.Profile.DerivedTags()
	for _, it := range items {
		s := scorer.Score(tags, it.Product)
		it.Score = float64(s)
		it.PutLabel("rank_score", utils.NewLabel(strconv.Itoa(s), "rank"))
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	return items, nil
}
