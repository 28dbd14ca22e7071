package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/giftkit/core"
)

// Pipeline 把单个 profile 的样本生成拆成可组合的 Node 链：
// Recall → Filter → Rank → ReRank。
type Pipeline struct {
	Nodes []Node
}

// Run 依次执行各 Node；profile 被丢弃后不再执行后续 Node。
func (p *Pipeline) Run(
	ctx context.Context,
	pctx *core.ProfileContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := node.Process(ctx, pctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		cur = next
		if pctx.Discarded() {
			return nil, nil
		}
	}
	return cur, nil
}

// Kinds 返回各 Node 的阶段，按执行顺序。
func (p *Pipeline) Kinds() []Kind {
	out := make([]Kind, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		out = append(out, n.Kind())
	}
	return out
}
