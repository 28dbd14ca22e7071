package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/giftkit/core"
)

// Config 是 Pipeline 的 YAML 配置结构。
//
//	pipeline:
//	  name: default
//	  nodes:
//	    - type: recall.budget
//	    - type: filter
//	      config:
//	        filters:
//	          - type: expr
//	            expr: 'product.price_max > 0'
//	    - type: rank.keyword
//	    - type: rerank.label
//	      config:
//	        top_positive: 6
//	        negative_per_profile: 20
type Config struct {
	Pipeline struct {
		Name  string       `yaml:"name"`
		Nodes []NodeConfig `yaml:"nodes"`
	} `yaml:"pipeline"`
}

// NodeConfig 是单个 Node 的配置。
type NodeConfig struct {
	Type   string         `yaml:"type"`   // recall.budget / filter / rank.keyword / rerank.label
	Config map[string]any `yaml:"config"` // Node 特定配置
}

// Env 是构建 Node 时可用的共享只读资源。
type Env struct {
	// Source 候选来源（通常是 recall.BudgetIndex）
	Source core.CandidateSource

	// Defaults 来自应用配置的默认值，Node 配置中的同名 key 优先
	Defaults map[string]any
}

// NodeBuilder 根据配置构建 Node。
type NodeBuilder func(cfg map[string]any, env *Env) (Node, error)

// LoadFromYAML 从 YAML 文件加载 Pipeline 配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML 解析 YAML 配置内容。
func ParseYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(cfg.Pipeline.Nodes) == 0 {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput, "pipeline: no nodes configured")
	}
	return &cfg, nil
}

// BuildPipeline 根据配置构建 Pipeline。
// factory 在独立的 config 包中注册，避免循环依赖。
func (c *Config) BuildPipeline(factory *NodeFactory, env *Env) (*Pipeline, error) {
	nodes := make([]Node, 0, len(c.Pipeline.Nodes))
	for _, nc := range c.Pipeline.Nodes {
		node, err := factory.Build(nc.Type, nc.Config, env)
		if err != nil {
			return nil, fmt.Errorf("build node %s: %w", nc.Type, err)
		}
		nodes = append(nodes, node)
	}
	return &Pipeline{Nodes: nodes}, nil
}

// NodeFactory 用于根据配置构建 Node 实例。
type NodeFactory struct {
	builders map[string]NodeBuilder
}

func NewNodeFactory() *NodeFactory {
	return &NodeFactory{
		builders: make(map[string]NodeBuilder),
	}
}

// Register 注册 Node 构建器。
func (f *NodeFactory) Register(nodeType string, builder NodeBuilder) {
	f.builders[nodeType] = builder
}

// Build 根据类型和配置构建 Node。Node 配置为空时会合并 env.Defaults。
func (f *NodeFactory) Build(nodeType string, config map[string]any, env *Env) (Node, error) {
	builder, ok := f.builders[nodeType]
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", nodeType)
	}
	if env == nil {
		env = &Env{}
	}
	merged := make(map[string]any, len(env.Defaults)+len(config))
	for k, v := range env.Defaults {
		merged[k] = v
	}
	for k, v := range config {
		merged[k] = v
	}
	return builder(merged, env)
}
