package recall

import (
	"context"
	"sort"
	"strconv"

	"github.com/rushteam/giftkit/core"
	"github.com/rushteam/giftkit/pipeline"
	"github.com/rushteam/giftkit/pkg/utils"
)

// BucketWidth 价格分桶宽度（货币单位），固定常量，查询时不可配置。
const BucketWidth = 10

// BudgetIndex 是按 price_min 分桶的商品索引，用于快速取出预算窗口内的候选。
//
// 查询时只按上界剪枝：从最低的桶一直扫到 budget_max 所在的桶，
// 桶内再用精确条件 price_max >= budget_min && price_min <= budget_max 过滤。
// 下界不参与桶剪枝（低价桶总会被扫描），所以加速是单边的，正确性完全由二次过滤保证。
type BudgetIndex struct {
	buckets map[int][]*core.Product
	keys    []int // 升序
	size    int
}

// NewBudgetIndex 一次性构建索引，O(N)。桶内保持输入顺序。
func NewBudgetIndex(products []*core.Product) *BudgetIndex {
	idx := &BudgetIndex{buckets: make(map[int][]*core.Product)}
	for _, p := range products {
		if p == nil {
			continue
		}
		k := bucketKey(p.PriceMin)
		if _, ok := idx.buckets[k]; !ok {
			idx.keys = append(idx.keys, k)
		}
		idx.buckets[k] = append(idx.buckets[k], p)
		idx.size++
	}
	sort.Ints(idx.keys)
	return idx
}

// Candidates 返回所有与预算窗口相交的商品，按桶升序、桶内插入顺序。
// 空索引返回空结果。
func (x *BudgetIndex) Candidates(budgetMin, budgetMax int) []*core.Product {
	if x == nil || x.size == 0 {
		return nil
	}
	last := bucketKey(budgetMax)
	end := sort.Search(len(x.keys), func(i int) bool { return x.keys[i] > last })

	var out []*core.Product
	for _, k := range x.keys[:end] {
		for _, p := range x.buckets[k] {
			if p.InBudget(budgetMin, budgetMax) {
				out = append(out, p)
			}
		}
	}
	return out
}

// Len 索引中的商品数。
func (x *BudgetIndex) Len() int {
	if x == nil {
		return 0
	}
	return x.size
}

// BucketCount 非空桶数量。
func (x *BudgetIndex) BucketCount() int {
	if x == nil {
		return 0
	}
	return len(x.keys)
}

// bucketKey 向下取整除法，负价格落在负数桶。
func bucketKey(price int) int {
	k := price / BucketWidth
	if price%BucketWidth != 0 && price < 0 {
		k--
	}
	return k
}

var _ core.CandidateSource = (*BudgetIndex)(nil)

// BudgetRecall 是召回 Node：按 profile 的预算窗口从 CandidateSource 取候选。
type BudgetRecall struct {
	Source core.CandidateSource
}

func (n *BudgetRecall) Name() string        { return "recall.budget" }
func (n *BudgetRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *BudgetRecall) Process(
	_ context.Context,
	pctx *core.ProfileContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if n.Source == nil || pctx == nil || pctx.Profile == nil {
		return nil, nil
	}
	prof := pctx.Profile
	products := n.Source.Candidates(prof.BudgetMin, prof.BudgetMax)

	out := make([]*core.Item, 0, len(products))
	for _, p := range products {
		it := core.NewItem(p)
		it.PutLabel("recall_source", utils.NewLabel("budget", "recall"))
		out = append(out, it)
	}
	pctx.PutLabel("candidates", utils.NewLabel(strconv.Itoa(len(out)), "recall"))
	return out, nil
}
