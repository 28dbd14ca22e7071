package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/giftkit/core"
	"github.com/rushteam/giftkit/pipeline"
)

// 使用配置驱动时，需在 main 或入口处 import _ "github.com/rushteam/giftkit/config/builders"
// 以触发内置 Node（recall.budget、filter、rank.keyword、rerank.label）的 init 注册。

// NodeBuilder 与 pipeline.NodeBuilder 一致：根据 config 构建 Node。
// 各组件在 init 中调用 Register(typeName, builder) 即可被配置驱动。
type NodeBuilder = pipeline.NodeBuilder

// LabelNodeType 负责打正负标签的 Node 类型，每条链必须包含
const LabelNodeType = "rerank.label"

var (
	defaultBuilders   = make(map[string]NodeBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑，供 DefaultFactory 与配置驱动使用。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的 Node 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory 返回基于当前注册表构建的 NodeFactory。
func DefaultFactory() *pipeline.NodeFactory {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range defaultBuilders {
		f.Register(typeName, builder)
	}
	return f
}

// ValidatePipelineConfig 校验所有 node 类型均已注册，且链中包含 rerank.label
// （没有它不会产出任何样本）。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput, "pipeline: config is nil")
	}
	supported := SupportedTypes()
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()

	labeled := false
	for _, nc := range cfg.Pipeline.Nodes {
		if _, ok := defaultBuilders[nc.Type]; !ok {
			return core.NewDomainError(core.ModulePipeline, core.ErrorCodeNotSupported,
				fmt.Sprintf("unsupported node type %q (supported: %v)", nc.Type, supported))
		}
		if nc.Type == LabelNodeType {
			labeled = true
		}
	}
	if !labeled {
		return core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput,
			"pipeline: missing "+LabelNodeType+" node")
	}
	return nil
}

// BuildPipeline 校验并构建 Pipeline。
func BuildPipeline(cfg *pipeline.Config, env *pipeline.Env) (*pipeline.Pipeline, error) {
	if err := ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	return cfg.BuildPipeline(DefaultFactory(), env)
}
