package core

import "github.com/rushteam/giftkit/pkg/utils"

// 样本标签取值。
const (
	LabelNone     = -1 // 尚未打标
	LabelNegative = 0
	LabelPositive = 1
)

// Item 是单个 profile 链路中的统一承载结构：候选商品、相关性分数、样本标签、解释标签。
// Score 用于排序；Label 由选择器写入；Labels 用于解释与观测。
type Item struct {
	ID      string
	Product *Product
	Score   float64
	Label   int
	Labels  map[string]utils.Label
}

func NewItem(p *Product) *Item {
	return &Item{
		ID:      p.ID,
		Product: p,
		Label:   LabelNone,
		Labels:  make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Labeled 返回是否已被选为正样本或负样本。
func (it *Item) Labeled() bool {
	return it.Label == LabelPositive || it.Label == LabelNegative
}
