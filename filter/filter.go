package filter

import (
	"context"

	"github.com/rushteam/giftkit/core"
)

// Filter 判断一个候选是否应被剔除。
// 返回 true 表示剔除，false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 item 是否应该被过滤
	ShouldFilter(ctx context.Context, pctx *core.ProfileContext, item *core.Item) (bool, error)
}
