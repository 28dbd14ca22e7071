package core

import (
	"math/rand/v2"

	"github.com/rushteam/giftkit/pkg/utils"
)

// ProfileContext 承载单个 profile 的处理上下文，贯穿整个 Pipeline 透传。
// 每个 profile 拥有独立的随机源，保证并发处理时结果与 worker 数无关。
type ProfileContext struct {
	// Seq 是 profile 在本次运行中的序号，也是随机源的 stream id
	Seq int

	Profile *Profile

	// Rand 负采样使用的随机源（不可跨 profile 共享）
	Rand *rand.Rand

	// Labels 是 profile 级标签，例如 "discarded"
	Labels map[string]utils.Label
}

// NewProfileContext 以 (seed, seq) 派生确定性随机源。
func NewProfileContext(seq int, profile *Profile, seed uint64) *ProfileContext {
	return &ProfileContext{
		Seq:     seq,
		Profile: profile,
		Rand:    rand.New(rand.NewPCG(seed, uint64(seq))),
		Labels:  make(map[string]utils.Label),
	}
}

// PutLabel 写入 profile 级 Label。
func (pctx *ProfileContext) PutLabel(key string, lbl utils.Label) {
	if pctx.Labels == nil {
		pctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := pctx.Labels[key]; ok {
		pctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	pctx.Labels[key] = lbl
}

// GetLabel 获取 profile 级 Label。
func (pctx *ProfileContext) GetLabel(key string) (utils.Label, bool) {
	if pctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := pctx.Labels[key]
	return lbl, ok
}

// LabelDiscarded profile 因候选不足被丢弃时写入的 key。
const LabelDiscarded = "discarded"

// Discarded 返回该 profile 是否已被丢弃。
func (pctx *ProfileContext) Discarded() bool {
	_, ok := pctx.GetLabel(LabelDiscarded)
	return ok
}
