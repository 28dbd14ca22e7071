// Package giftkit 生成礼物推荐模型的训练数据（Gift Kit）。
//
// 设计要点：
// - Pipeline-first: 每个画像的样本生成通过 Node 串联（Recall → Filter → Rank → ReRank）
// - Labels-first: 召回来源、打分、正负标签以 labels 全链路透传，便于解释与观测
// - Schema-first: 特征顺序与归一化常量只来自 feature schema，训练与推理共用同一个 Encoder
package giftkit

import "github.com/rushteam/giftkit/pipeline"

// 轻量 facade：便于直接 import "giftkit" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindRank   = pipeline.KindRank
	KindReRank = pipeline.KindReRank
)
