package filter

import (
	"context"
	"fmt"

	"github.com/rushteam/giftkit/core"
	"github.com/rushteam/giftkit/pipeline"
)

// FilterNode 组合多个过滤器，任一过滤器返回 true 即剔除该候选。
// 保留下来的候选保持原有顺序。
type FilterNode struct {
	Filters []Filter
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	pctx *core.ProfileContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		drop := false
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, pctx, item)
			if err != nil {
				// 表达式错误属于配置错误，不能静默吞掉
				return nil, fmt.Errorf("%s: %w", f.Name(), err)
			}
			if ok {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, item)
		}
	}
	return out, nil
}
