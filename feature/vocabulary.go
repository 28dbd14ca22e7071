package feature

import (
	"sort"

	"github.com/rushteam/giftkit/core"
)

// CategoryUnknownID 未命中词表时返回的类目 ID。
//
// 与词表中字典序最小的类目共用 0，下游不能把 0 当作可靠的类目信号。
const CategoryUnknownID = 0

// CategoryVocabulary 是全量商品类目 token 的有序词表。
// 同一份商品目录构建出的词表完全一致（排序、去重）。
type CategoryVocabulary struct {
	tokens []string
	index  map[string]int
}

// BuildCategoryVocabulary 拆分每个商品的 category 字段，去重后按字典序编号 0..M-1。
func BuildCategoryVocabulary(products []*core.Product) *CategoryVocabulary {
	set := make(map[string]struct{})
	for _, p := range products {
		if p == nil {
			continue
		}
		for _, c := range p.Categories() {
			set[c] = struct{}{}
		}
	}
	tokens := make([]string, 0, len(set))
	for c := range set {
		tokens = append(tokens, c)
	}
	sort.Strings(tokens)
	return NewCategoryVocabulary(tokens)
}

// NewCategoryVocabulary 用已排好序的 token 列表创建词表（例如从 schema 的 category_list 恢复）。
// 重复 token 以第一次出现的位置为准。
func NewCategoryVocabulary(tokens []string) *CategoryVocabulary {
	v := &CategoryVocabulary{
		tokens: append([]string(nil), tokens...),
		index:  make(map[string]int, len(tokens)),
	}
	for i, t := range v.tokens {
		if _, ok := v.index[t]; !ok {
			v.index[t] = i
		}
	}
	return v
}

// CategoryToID 返回字段中第一个（按字段内顺序）命中词表的 token 的下标；
// 字段为空或没有命中时返回 CategoryUnknownID。
func (v *CategoryVocabulary) CategoryToID(field string) int {
	if v == nil {
		return CategoryUnknownID
	}
	for _, c := range core.SplitCategories(field) {
		if id, ok := v.index[c]; ok {
			return id
		}
	}
	return CategoryUnknownID
}

// Tokens 返回词表副本
func (v *CategoryVocabulary) Tokens() []string {
	if v == nil {
		return nil
	}
	return append([]string(nil), v.tokens...)
}

// Len 词表大小
func (v *CategoryVocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.tokens)
}

// Equal 判断两个词表的 token 及顺序是否完全一致。
func (v *CategoryVocabulary) Equal(other *CategoryVocabulary) bool {
	if v.Len() != other.Len() {
		return false
	}
	for i := range v.Len() {
		if v.tokens[i] != other.tokens[i] {
			return false
		}
	}
	return true
}
