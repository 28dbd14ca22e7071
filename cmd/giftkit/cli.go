package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/rushteam/giftkit/config"
	"github.com/rushteam/giftkit/core"
	"github.com/rushteam/giftkit/feature"
	"github.com/rushteam/giftkit/pkg/logging"
)

// newCLIApp 创建 CLI，所有命令的标准输出写到 out。
func newCLIApp(out io.Writer) *cli.App {
	app := &cli.App{
		Name:    "giftkit",
		Usage:   "Gift recommender training data generator",
		Version: Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"GIFTKIT_CONFIG"}},
			&cli.StringFlag{Name: "log-level", Usage: "trace|debug|info|warn|error"},
			&cli.StringFlag{Name: "log-format", Usage: "json|console"},
		},
		Commands: []*cli.Command{
			generateCmd(out),
			vocabCmd(out),
			schemaCmd(out),
			encodeCmd(out),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// loadConfig 读取配置文件与环境变量，再用命令行参数覆盖，并初始化日志。
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if c.IsSet("catalog") {
		cfg.CatalogPath = c.String("catalog")
	}
	if c.IsSet("schema") {
		cfg.SchemaPath = c.String("schema")
	}
	if c.IsSet("output") {
		cfg.Output.Path = c.String("output")
	}
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.IsSet("no-manifest") {
		cfg.Output.Manifest = !c.Bool("no-manifest")
	}
	if c.IsSet("profiles") {
		cfg.Generate.Profiles = c.Int("profiles")
	}
	if c.IsSet("seed") {
		cfg.Generate.Seed = c.Uint64("seed")
		cfg.Generate.Unseeded = false
	}
	if c.IsSet("unseeded") {
		cfg.Generate.Unseeded = c.Bool("unseeded")
	}
	if c.IsSet("workers") {
		cfg.Generate.Workers = c.Int("workers")
	}
	if c.IsSet("expect") {
		cfg.Generate.ExpectedFeatureCount = c.Int("expect")
	}
	if c.IsSet("pipeline") {
		cfg.PipelineFile = c.String("pipeline")
	}
	if c.IsSet("metrics") {
		cfg.MetricsFile = c.String("metrics")
	}
	if c.IsSet("exclude") {
		cfg.Filter.ExcludeIDs = parseList(c.String("exclude"))
	}
	if c.IsSet("filter") {
		cfg.Filter.Expr = c.String("filter")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr})
	return cfg, nil
}

// 各命令共用的输入参数
func catalogFlag() cli.Flag {
	return &cli.StringFlag{Name: "catalog", Usage: "Product catalog CSV"}
}

func schemaFlag() cli.Flag {
	return &cli.StringFlag{Name: "schema", Usage: "Feature schema JSON (path or http(s) URL)"}
}

// generateCmd 完整生成一次数据集
func generateCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Synthesize profiles and write the labeled training dataset",
		Flags: []cli.Flag{
			catalogFlag(),
			schemaFlag(),
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Dataset path (\"-\" for stdout, csv only)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "csv|sqlite"},
			&cli.BoolFlag{Name: "no-manifest", Usage: "Do not write the run manifest"},
			&cli.IntFlag{Name: "profiles", Aliases: []string{"n"}, Usage: "Number of profiles to synthesize"},
			&cli.Uint64Flag{Name: "seed", Usage: "Run seed"},
			&cli.BoolFlag{Name: "unseeded", Usage: "Draw the seed from the clock"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Usage: "Concurrent workers (0 = GOMAXPROCS)"},
			&cli.IntFlag{Name: "expect", Usage: "Feature count the downstream trainer expects"},
			&cli.StringFlag{Name: "pipeline", Usage: "Pipeline YAML"},
			&cli.StringFlag{Name: "metrics", Usage: "Write Prometheus metrics textfile"},
			&cli.StringFlag{Name: "exclude", Usage: "Comma-separated product ids to exclude"},
			&cli.StringFlag{Name: "filter", Usage: "CEL expression; candidates evaluating to false are dropped"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			m, err := runGenerate(c.Context, cfg)
			if err != nil {
				return err
			}
			// 数据写到 stdout 时不再输出摘要
			if cfg.Output.Path == "-" {
				return nil
			}
			return outputJSON(out, m)
		},
	}
}

// vocabCmd 构建并持久化类目词表
func vocabCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "vocab",
		Usage: "Build the category vocabulary for a catalog and persist it",
		Flags: []cli.Flag{
			catalogFlag(),
			schemaFlag(),
			&cli.BoolFlag{Name: "save-schema", Usage: "Write the vocabulary into the schema's category_list"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			res, err := runVocab(c.Context, cfg, c.Bool("save-schema"))
			if err != nil {
				return err
			}
			return outputJSON(out, res)
		},
	}
}

// schemaCmd schema 子命令
func schemaCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Manage the feature schema",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default feature schema",
				Flags: []cli.Flag{
					schemaFlag(),
					&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing schema"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					if isRemote(cfg.SchemaPath) {
						return core.NewDomainError(core.ModuleSchema, core.ErrorCodeNotSupported, "schema init: cannot write to "+cfg.SchemaPath)
					}
					if _, err := os.Stat(cfg.SchemaPath); err == nil && !c.Bool("force") {
						return core.NewDomainError(core.ModuleSchema, core.ErrorCodeInvalidInput,
							fmt.Sprintf("schema %s already exists (use --force)", cfg.SchemaPath))
					}
					s := feature.DefaultSchema()
					if err := s.Save(cfg.SchemaPath); err != nil {
						return err
					}
					return outputJSON(out, map[string]any{
						"path":          cfg.SchemaPath,
						"version":       s.Version,
						"feature_count": s.FeatureCount(),
					})
				},
			},
			{
				Name:  "check",
				Usage: "Validate a schema, optionally against an expected feature count",
				Flags: []cli.Flag{
					schemaFlag(),
					&cli.IntFlag{Name: "expect", Usage: "Feature count the downstream trainer expects"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					s, err := feature.LoaderFor(cfg.SchemaPath).Load(c.Context, cfg.SchemaPath)
					if err != nil {
						return err
					}
					if err := s.Validate(cfg.Generate.ExpectedFeatureCount); err != nil {
						return err
					}
					return outputJSON(out, map[string]any{
						"version":        s.Version,
						"feature_count":  s.FeatureCount(),
						"category_count": len(s.CategoryList),
						"feature_names":  s.FeatureNames,
					})
				},
			},
		},
	}
}

// encodeCmd 对一个临时画像编码候选商品（推理期的编码路径）
func encodeCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "Encode one profile against its top catalog candidates and print the vectors",
		Flags: []cli.Flag{
			catalogFlag(),
			schemaFlag(),
			&cli.StringFlag{Name: "occasion", Value: "other"},
			&cli.StringFlag{Name: "relationship", Value: "other"},
			&cli.StringFlag{Name: "age", Value: "25-34", Usage: "Age range"},
			&cli.IntFlag{Name: "budget-min", Value: 0},
			&cli.IntFlag{Name: "budget-max", Value: 100},
			&cli.StringFlag{Name: "interests", Usage: "Comma-separated interests"},
			&cli.StringFlag{Name: "daily-life", Usage: "Comma-separated daily-life tags"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"k"}, Value: 10, Usage: "Number of candidates to encode"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			prof, err := core.NewProfile(
				c.String("occasion"),
				c.String("relationship"),
				c.String("age"),
				c.Int("budget-min"),
				c.Int("budget-max"),
				parseList(c.String("interests")),
				parseList(c.String("daily-life")),
			)
			if err != nil {
				return err
			}
			res, err := runEncode(c.Context, cfg, prof, c.Int("limit"))
			if err != nil {
				return err
			}
			return outputJSON(out, res)
		},
	}
}

// parseList parses a comma-separated string into a slice.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// outputJSON writes v as indented JSON.
func outputJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
