package pipeline

import (
	"context"

	"github.com/rushteam/giftkit/core"
)

// Kind 用于标记 Node 所处阶段，方便观测与配置校验。
type Kind string

const (
	KindRecall Kind = "recall" // 召回阶段：按预算窗口生成候选集
	KindFilter Kind = "filter" // 过滤阶段：剔除黑名单 / 不满足表达式的候选
	KindRank   Kind = "rank"   // 排序阶段：关键词打分并排序
	KindReRank Kind = "rerank" // 重排阶段：切分正负样本
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用"输入 items -> 输出 items"的形态。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		pctx *core.ProfileContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
