// Package config 加载应用配置，并维护 Pipeline Node 的注册表。
//
// 配置按以下顺序叠加，后者覆盖前者：
//
//  1. 内置默认值
//  2. YAML 配置文件（可选）
//  3. 环境变量：GIFTKIT_ 前缀，"__" 表示层级，例如 GIFTKIT_GENERATE__SEED=7
//  4. 命令行参数（由 cmd/giftkit 写回）
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/giftkit/core"
	"github.com/rushteam/giftkit/pipeline"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "GIFTKIT_"

// Config 应用配置
type Config struct {
	CatalogPath string `koanf:"catalog_path"`
	// SchemaPath 本地路径或 http(s) URL
	SchemaPath string `koanf:"schema_path"`
	// PipelineFile 可选的 Node 链 YAML，为空时使用 DefaultPipelineConfig
	PipelineFile string `koanf:"pipeline_file"`
	// MetricsFile 可选，运行结束后写出 Prometheus textfile
	MetricsFile string `koanf:"metrics_file"`

	Output   OutputConfig   `koanf:"output"`
	Generate GenerateConfig `koanf:"generate"`
	Store    StoreConfig    `koanf:"store"`
	Filter   FilterConfig   `koanf:"filter"`
	Log      LogConfig      `koanf:"log"`
}

// OutputConfig 数据集输出
type OutputConfig struct {
	Path     string `koanf:"path"`
	Format   string `koanf:"format"` // csv / sqlite
	Manifest bool   `koanf:"manifest"`
}

// GenerateConfig 样本生成参数
type GenerateConfig struct {
	Profiles           int    `koanf:"profiles"`
	TopPositive        int    `koanf:"top_positive"`
	NegativePerProfile int    `koanf:"negative_per_profile"`
	MinSlack           int    `koanf:"min_slack"`
	Stratify           bool   `koanf:"stratify"`
	Seed               uint64 `koanf:"seed"`
	// Unseeded 为 true 时忽略 Seed，从时钟取种子并记录到 manifest
	Unseeded bool `koanf:"unseeded"`
	Workers  int  `koanf:"workers"`
	// ExpectedFeatureCount 下游训练程序要求的特征数量，0 表示不校验
	ExpectedFeatureCount int `koanf:"expected_feature_count"`
}

// StoreConfig 词表快照存储
type StoreConfig struct {
	Backend   string `koanf:"backend"` // memory / redis
	RedisAddr string `koanf:"redis_addr"`
	RedisDB   int    `koanf:"redis_db"`
	KeyPrefix string `koanf:"key_prefix"`
}

// FilterConfig 候选过滤；都为空时不插入 filter 节点
type FilterConfig struct {
	ExcludeIDs []string `koanf:"exclude_ids"`
	// Expr CEL 表达式，结果为 true 的候选保留
	Expr string `koanf:"expr"`
}

// Enabled 是否配置了任何过滤条件
func (f FilterConfig) Enabled() bool {
	return len(f.ExcludeIDs) > 0 || f.Expr != ""
}

// LogConfig 日志
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json / console
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		CatalogPath: "products.csv",
		SchemaPath:  "feature_spec.json",
		Output: OutputConfig{
			Path:     "training_data.csv",
			Format:   "csv",
			Manifest: true,
		},
		Generate: GenerateConfig{
			Profiles:           500,
			TopPositive:        6,
			NegativePerProfile: 20,
			MinSlack:           5,
			Stratify:           true,
			Seed:               42,
		},
		Store: StoreConfig{
			Backend:   "memory",
			KeyPrefix: "giftkit:vocab:",
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load 加载配置；path 为空时只使用默认值与环境变量。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, core.NewMissingResource(core.ModuleConfig, "config file "+path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform GIFTKIT_GENERATE__TOP_POSITIVE -> generate.top_positive
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// sliceFields 环境变量中以逗号分隔的列表字段
var sliceFields = []string{"filter.exclude_ids"}

func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceFields {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := make([]string, 0)
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	invalid := func(msg string) error {
		return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput, "config: "+msg)
	}
	g := c.Generate
	switch {
	case g.Profiles <= 0:
		return invalid("generate.profiles must be positive")
	case g.TopPositive <= 0:
		return invalid("generate.top_positive must be positive")
	case g.NegativePerProfile < 0:
		return invalid("generate.negative_per_profile must not be negative")
	case g.MinSlack < 0:
		return invalid("generate.min_slack must not be negative")
	case g.Workers < 0:
		return invalid("generate.workers must not be negative")
	case g.ExpectedFeatureCount < 0:
		return invalid("generate.expected_feature_count must not be negative")
	}
	switch c.Output.Format {
	case "csv", "sqlite":
	default:
		return invalid(fmt.Sprintf("unknown output.format %q (csv, sqlite)", c.Output.Format))
	}
	switch c.Store.Backend {
	case "", "memory":
	case "redis":
		if c.Store.RedisAddr == "" {
			return invalid("store.redis_addr is required for the redis backend")
		}
	default:
		return invalid(fmt.Sprintf("unknown store.backend %q (memory, redis)", c.Store.Backend))
	}
	return nil
}

// NodeDefaults 传给 pipeline.Env 的默认值，Node 配置中的同名 key 优先。
func (c *Config) NodeDefaults() map[string]any {
	return map[string]any{
		"top_positive":         c.Generate.TopPositive,
		"negative_per_profile": c.Generate.NegativePerProfile,
		"min_slack":            c.Generate.MinSlack,
	}
}

// PipelineConfig 返回 Node 链配置：PipelineFile 优先，否则使用默认链。
func (c *Config) PipelineConfig() (*pipeline.Config, error) {
	if c.PipelineFile != "" {
		pc, err := pipeline.LoadFromYAML(c.PipelineFile)
		if err != nil {
			return nil, err
		}
		return pc, nil
	}
	return DefaultPipelineConfig(c.Filter), nil
}

// DefaultPipelineConfig 默认链：recall.budget → [filter] → rank.keyword → rerank.label。
func DefaultPipelineConfig(f FilterConfig) *pipeline.Config {
	pc := &pipeline.Config{}
	pc.Pipeline.Name = "default"
	pc.Pipeline.Nodes = append(pc.Pipeline.Nodes, pipeline.NodeConfig{Type: "recall.budget"})
	if f.Enabled() {
		var filters []any
		if len(f.ExcludeIDs) > 0 {
			ids := make([]any, 0, len(f.ExcludeIDs))
			for _, id := range f.ExcludeIDs {
				ids = append(ids, id)
			}
			filters = append(filters, map[string]any{"type": "blacklist", "item_ids": ids})
		}
		if f.Expr != "" {
			filters = append(filters, map[string]any{"type": "expr", "expr": f.Expr})
		}
		pc.Pipeline.Nodes = append(pc.Pipeline.Nodes, pipeline.NodeConfig{
			Type:   "filter",
			Config: map[string]any{"filters": filters},
		})
	}
	pc.Pipeline.Nodes = append(pc.Pipeline.Nodes,
		pipeline.NodeConfig{Type: "rank.keyword"},
		pipeline.NodeConfig{Type: "rerank.label"},
	)
	return pc
}
