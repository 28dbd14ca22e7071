package rerank

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/rushteam/giftkit/core"
	"github.com/rushteam/giftkit/pipeline"
	"github.com/rushteam/giftkit/pkg/utils"
)

// 默认选择参数。
const (
	DefaultTopPositive        = 6
	DefaultNegativePerProfile = 20
	DefaultMinSlack           = 5
)

// Selector 把已排序的候选切分为正负样本：
//
//  1. 候选数 < TopPositive + MinSlack 时整个 profile 丢弃（不产出任何样本）；
//  2. 前 TopPositive 个无条件为正样本（即使分数为 0，取的是"相对最优"）；
//  3. 剩余候选中无放回均匀抽取 min(NegativePerProfile, 剩余数) 个为负样本。
//
// 正负样本来自排序后不相交的下标区间，同一商品不会出现两次。
type Selector struct {
	TopPositive        int
	NegativePerProfile int
	MinSlack           int
}

// NewSelector 使用默认参数 6 / 20 / 5。
func NewSelector() *Selector {
	return &Selector{
		TopPositive:        DefaultTopPositive,
		NegativePerProfile: DefaultNegativePerProfile,
		MinSlack:           DefaultMinSlack,
	}
}

// Selection 单个 profile 的正负样本。
type Selection struct {
	Positives []*core.Item
	Negatives []*core.Item
}

// Items 按正样本在前、负样本在后的顺序返回全部样本。
func (s Selection) Items() []*core.Item {
	out := make([]*core.Item, 0, len(s.Positives)+len(s.Negatives))
	out = append(out, s.Positives...)
	return append(out, s.Negatives...)
}

// MinCandidates 不被丢弃所需的最少候选数。
func (s *Selector) MinCandidates() int {
	return max(s.TopPositive, 0) + max(s.MinSlack, 0)
}

// Select 对已按分数降序排列的候选做切分；候选不足时返回 ok=false。
// rng 只用于负采样。
func (s *Selector) Select(rng *rand.Rand, ranked []*core.Item) (sel Selection, ok bool) {
	if len(ranked) < s.MinCandidates() {
		return Selection{}, false
	}
	top := min(max(s.TopPositive, 0), len(ranked))
	for _, it := range ranked[:top] {
		it.Label = core.LabelPositive
		sel.Positives = append(sel.Positives, it)
	}

	rest := ranked[top:]
	k := min(max(s.NegativePerProfile, 0), len(rest))
	for _, i := range sampleIndices(rng, len(rest), k) {
		it := rest[i]
		it.Label = core.LabelNegative
		sel.Negatives = append(sel.Negatives, it)
	}
	return sel, true
}

// sampleIndices 从 [0,n) 中无放回均匀抽取 k 个下标（部分 Fisher-Yates）。
func sampleIndices(rng *rand.Rand, n, k int) []int {
	if k <= 0 || n <= 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

// LabelNode 是重排 Node：调用 Selector 打标，只输出被选中的样本。
//
// 使用方式：
//
//	p := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.BudgetRecall{Source: idx},
//	        &rank.KeywordNode{},
//	        &rerank.LabelNode{Selector: rerank.NewSelector()},
//	    },
//	}
type LabelNode struct {
	Selector *Selector
}

func (n *LabelNode) Name() string        { return "rerank.label" }
func (n *LabelNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *LabelNode) Process(
	_ context.Context,
	pctx *core.ProfileContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if pctx == nil || pctx.Rand == nil {
		return nil, fmt.Errorf("rerank.label: profile context without random source")
	}
	sel := n.Selector
	if sel == nil {
		sel = NewSelector()
	}
	out, ok := sel.Select(pctx.Rand, items)
	if !ok {
		pctx.PutLabel(core.LabelDiscarded, utils.NewLabel(
			fmt.Sprintf("candidates=%d<%d", len(items), sel.MinCandidates()), "rerank"))
		return nil, nil
	}
	for _, it := range out.Positives {
		it.PutLabel("sample", utils.NewLabel("top"+strconv.Itoa(sel.TopPositive), "rerank"))
	}
	for _, it := range out.Negatives {
		it.PutLabel("sample", utils.NewLabel("random", "rerank"))
	}
	return out.Items(), nil
}
