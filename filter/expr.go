package filter

import (
	"context"

	"github.com/rushteam/giftkit/core"
	"github.com/rushteam/giftkit/pkg/dsl"
)

// ExprFilter 用 CEL 表达式挑选候选：表达式为 true 的候选保留，false 的剔除。
//
// 示例：
//
//	product.price_max > 0 && !("adult" in product.tags)
//	profile.age_range != "0-12" || product.category.contains("toys")
type ExprFilter struct {
	program *dsl.Program
}

// NewExprFilter 编译表达式，语法错误在构建时返回。
func NewExprFilter(expr string) (*ExprFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{program: prg}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	pctx *core.ProfileContext,
	item *core.Item,
) (bool, error) {
	if item == nil || item.Product == nil {
		return true, nil
	}
	var prof *core.Profile
	if pctx != nil {
		prof = pctx.Profile
	}
	keep, err := f.program.Eval(item.Product, prof)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
