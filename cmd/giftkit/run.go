package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/rushteam/giftkit/catalog"
	"github.com/rushteam/giftkit/config"
	"github.com/rushteam/giftkit/core"
	"github.com/rushteam/giftkit/dataset"
	"github.com/rushteam/giftkit/feature"
	"github.com/rushteam/giftkit/pipeline"
	"github.com/rushteam/giftkit/pkg/logging"
	"github.com/rushteam/giftkit/rank"
	"github.com/rushteam/giftkit/recall"
	"github.com/rushteam/giftkit/store"
	"github.com/rushteam/giftkit/synth"
)

// synthStream 画像合成使用的 PCG stream，与按 profile 序号派生的 stream 不重叠
const synthStream = ^uint64(0)

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// resources 一次运行共享的只读输入
type resources struct {
	catalog *catalog.LoadResult
	schema  *feature.Schema
	vocab   *feature.CategoryVocabulary
	reused  bool
}

// loadResources 加载目录与 schema，解析词表并写回 category_list。
// 任何前置资源缺失都在生成开始前返回。
func loadResources(ctx context.Context, cfg *config.Config) (*resources, error) {
	log := logging.Component("giftkit")

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	schema, err := feature.LoaderFor(cfg.SchemaPath).Load(ctx, cfg.SchemaPath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("catalog", cfg.CatalogPath).Int("products", len(cat.Products)).
		Int("skipped", cat.Skipped).Str("fingerprint", cat.Fingerprint).Msg("catalog loaded")

	st, err := store.Open(ctx, cfg.Store.Backend, cfg.Store.RedisAddr, cfg.Store.RedisDB)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	reg := feature.NewVocabularyRegistry(st, cfg.Store.KeyPrefix)
	vocab, reused, err := reg.Resolve(ctx, cat.Fingerprint, feature.BuildCategoryVocabulary(cat.Products))
	if err != nil {
		return nil, err
	}
	log.Info().Int("categories", vocab.Len()).Bool("reused", reused).Str("store", st.Name()).Msg("vocabulary resolved")

	schema.SetCategoryList(vocab)
	if err := schema.Validate(cfg.Generate.ExpectedFeatureCount); err != nil {
		return nil, err
	}
	return &resources{catalog: cat, schema: schema, vocab: vocab, reused: reused}, nil
}

// saveSchema 本地 schema 写回 category_list；远程 schema 只读。
func saveSchema(cfg *config.Config, s *feature.Schema) error {
	if isRemote(cfg.SchemaPath) {
		log := logging.Component("giftkit")
		log.Warn().Str("schema", cfg.SchemaPath).Msg("remote schema, category_list not written back")
		return nil
	}
	return s.Save(cfg.SchemaPath)
}

// runGenerate 完整运行：加载 → 合成画像 → Pipeline → 编码 → 写出。
func runGenerate(ctx context.Context, cfg *config.Config) (*dataset.Manifest, error) {
	log := logging.Component("giftkit")

	res, err := loadResources(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := saveSchema(cfg, res.schema); err != nil {
		return nil, err
	}

	enc, err := feature.NewEncoder(res.schema, res.vocab)
	if err != nil {
		return nil, err
	}
	pc, err := cfg.PipelineConfig()
	if err != nil {
		return nil, err
	}
	p, err := config.BuildPipeline(pc, &pipeline.Env{
		Source:   recall.NewBudgetIndex(res.catalog.Products),
		Defaults: cfg.NodeDefaults(),
	})
	if err != nil {
		return nil, err
	}

	seed := cfg.Generate.Seed
	if cfg.Generate.Unseeded {
		seed = uint64(time.Now().UnixNano())
	}
	sy := synth.NewSynthesizer()
	sy.Stratify = cfg.Generate.Stratify
	profiles, err := sy.Generate(rand.New(rand.NewPCG(seed, synthStream)), cfg.Generate.Profiles)
	if err != nil {
		return nil, err
	}

	monitor := dataset.NewMonitor()
	monitor.ObserveCatalogSkipped(res.catalog.Skipped)

	g := dataset.NewGenerator(p, enc, seed)
	g.Workers = cfg.Generate.Workers
	g.Monitor = monitor

	m := &dataset.Manifest{
		RunID:              dataset.NewRunID(),
		CreatedAt:          time.Now().UTC(),
		Seed:               seed,
		Workers:            cfg.Generate.Workers,
		Output:             cfg.Output.Path,
		Format:             cfg.Output.Format,
		SchemaVersion:      res.schema.Version,
		FeatureCount:       res.schema.FeatureCount(),
		CatalogFingerprint: res.catalog.Fingerprint,
		CatalogProducts:    len(res.catalog.Products),
		CatalogSkipped:     res.catalog.Skipped,
		VocabularySize:     res.vocab.Len(),
		VocabularyReused:   res.reused,
	}
	log.Info().Str("run_id", m.RunID).Uint64("seed", seed).Int("profiles", len(profiles)).
		Str("output", cfg.Output.Path).Msg("generation started")

	sink, err := dataset.Open(cfg.Output.Format, cfg.Output.Path)
	if err != nil {
		return nil, err
	}
	stats, err := g.Run(ctx, profiles, sink)
	if err != nil {
		// 已有的数据集保持不变
		sink.Abort()
		return nil, err
	}
	m.Stats = stats
	if db, ok := sink.(*dataset.SQLiteSink); ok {
		for k, v := range map[string]string{
			"run_id":              m.RunID,
			"seed":                strconv.FormatUint(seed, 10),
			"catalog_fingerprint": m.CatalogFingerprint,
		} {
			if err := db.SetMeta(k, v); err != nil {
				sink.Abort()
				return nil, fmt.Errorf("write meta: %w", err)
			}
		}
	}
	if err := sink.Close(); err != nil {
		return nil, fmt.Errorf("close output: %w", err)
	}

	if cfg.Output.Manifest && cfg.Output.Path != "" && cfg.Output.Path != "-" {
		if err := dataset.WriteManifest(dataset.ManifestPath(cfg.Output.Path), m); err != nil {
			return nil, err
		}
	}
	if cfg.MetricsFile != "" {
		if err := monitor.WriteToTextfile(cfg.MetricsFile); err != nil {
			return nil, fmt.Errorf("write metrics: %w", err)
		}
	}
	return m, nil
}

// vocabResult vocab 命令输出
type vocabResult struct {
	Fingerprint string   `json:"fingerprint"`
	Products    int      `json:"products"`
	Skipped     int      `json:"skipped"`
	Reused      bool     `json:"reused"`
	Tokens      []string `json:"tokens"`
}

func runVocab(ctx context.Context, cfg *config.Config, save bool) (*vocabResult, error) {
	res, err := loadResources(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if save {
		if err := saveSchema(cfg, res.schema); err != nil {
			return nil, err
		}
	}
	return &vocabResult{
		Fingerprint: res.catalog.Fingerprint,
		Products:    len(res.catalog.Products),
		Skipped:     res.catalog.Skipped,
		Reused:      res.reused,
		Tokens:      res.vocab.Tokens(),
	}, nil
}

// encodedCandidate encode 命令输出的一行
type encodedCandidate struct {
	ProductID string    `json:"product_id"`
	Score     float64   `json:"score"`
	Features  []float64 `json:"features"`
}

type encodeResult struct {
	Profile      string             `json:"profile"`
	FeatureNames []string           `json:"feature_names"`
	Candidates   []encodedCandidate `json:"candidates"`
}

// runEncode 推理期编码：召回 + 排序后取前 limit 个候选，用 schema 中保存的词表编码。
func runEncode(ctx context.Context, cfg *config.Config, prof *core.Profile, limit int) (*encodeResult, error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	schema, err := feature.LoaderFor(cfg.SchemaPath).Load(ctx, cfg.SchemaPath)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(cfg.Generate.ExpectedFeatureCount); err != nil {
		return nil, err
	}
	vocab := schema.Vocabulary()
	if vocab.Len() == 0 {
		log := logging.Component("giftkit")
		log.Warn().Msg("schema has no category_list, building vocabulary from catalog")
		vocab = feature.BuildCategoryVocabulary(cat.Products)
	}
	enc, err := feature.NewEncoder(schema, vocab)
	if err != nil {
		return nil, err
	}

	p := &pipeline.Pipeline{Nodes: []pipeline.Node{
		&recall.BudgetRecall{Source: recall.NewBudgetIndex(cat.Products)},
		&rank.KeywordNode{Scorer: rank.NewKeywordScorer()},
	}}
	items, err := p.Run(ctx, core.NewProfileContext(0, prof, cfg.Generate.Seed), nil)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	out := &encodeResult{
		Profile:      prof.String(),
		FeatureNames: schema.FeatureNames,
		Candidates:   make([]encodedCandidate, 0, len(items)),
	}
	for _, it := range items {
		vec, err := enc.Encode(prof, it.Product)
		if err != nil {
			return nil, err
		}
		out.Candidates = append(out.Candidates, encodedCandidate{ProductID: it.ID, Score: it.Score, Features: vec})
	}
	return out, nil
}
