package core

import "strings"

// CategoryDelimiter 多值字段（category / tags）的分隔符。
const CategoryDelimiter = "|"

// Product 是候选商品，构造后只读。
//
// Title / Category / Tags 均已小写化，匹配时直接做子串判断。
// PriceMin <= PriceMax 不做保证（上游数据可能倒置），所有价格判断都要容忍这种情况。
type Product struct {
	ID       string
	Title    string
	Category string
	Tags     []string
	PriceMin int
	PriceMax int
}

// NewProduct 创建商品并在构造时校验必填字段。
func NewProduct(id, title, category string, tags []string, priceMin, priceMax int) (*Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, NewDomainError(ModuleCatalog, ErrorCodeInvalidInput, "product: id is required")
	}
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return &Product{
		ID:       id,
		Title:    strings.ToLower(title),
		Category: strings.ToLower(category),
		Tags:     cleaned,
		PriceMin: priceMin,
		PriceMax: priceMax,
	}, nil
}

// Categories 按分隔符拆分 Category，返回去空白后的 token（保持字段内顺序）。
func (p *Product) Categories() []string {
	return SplitCategories(p.Category)
}

// InBudget 判断价格区间与预算窗口是否相交：
// price_max >= budget_min && price_min <= budget_max。
// 召回过滤与特征 price_in_budget 共用此判断。
func (p *Product) InBudget(budgetMin, budgetMax int) bool {
	return p.PriceMax >= budgetMin && p.PriceMin <= budgetMax
}

// SplitCategories 拆分多值类目字段：按 "|" 切分、去空白、小写，丢弃空 token。
func SplitCategories(field string) []string {
	if field == "" {
		return nil
	}
	parts := strings.Split(field, CategoryDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MatchesTag 双向子串匹配：tag 包含于某个商品标签，或某个商品标签包含于 tag。
func (p *Product) MatchesTag(tag string) bool {
	if tag == "" {
		return false
	}
	for _, pt := range p.Tags {
		if strings.Contains(pt, tag) || strings.Contains(tag, pt) {
			return true
		}
	}
	return false
}

// TagOverlap 统计 tags 中与商品标签双向子串匹配的个数。
func (p *Product) TagOverlap(tags []string) int {
	n := 0
	for _, t := range tags {
		if p.MatchesTag(t) {
			n++
		}
	}
	return n
}
