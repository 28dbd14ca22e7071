// Package dataset 把画像批量跑过 Pipeline，编码为训练样本并写出。
package dataset

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/giftkit/core"
	"github.com/rushteam/giftkit/feature"
	"github.com/rushteam/giftkit/pipeline"
	"github.com/rushteam/giftkit/pkg/logging"
)

// ProfileResult 单个画像的处理结果
type ProfileResult struct {
	Seq        int
	Profile    *core.Profile
	Candidates int
	Discarded  bool
	Rows       []core.Row
}

// Stats 一次生成的计数
type Stats struct {
	Profiles  int `json:"profiles"`
	Emitted   int `json:"emitted"`
	Discarded int `json:"discarded"`
	Rows      int `json:"rows"`
	Positives int `json:"positives"`
	Negatives int `json:"negatives"`
}

// Generator 并发处理画像，按画像顺序写出样本。
//
// 每个画像使用由 (Seed, seq) 派生的独立随机源，Pipeline / Encoder / 候选索引只读共享，
// 因此输出与 Workers 数量无关。
type Generator struct {
	Pipeline *pipeline.Pipeline
	Encoder  *feature.Encoder
	Seed     uint64
	// Workers 并发数，<= 0 时使用 GOMAXPROCS
	Workers int
	// Monitor 可选
	Monitor *Monitor
	Logger  zerolog.Logger
}

// NewGenerator 创建生成器
func NewGenerator(p *pipeline.Pipeline, enc *feature.Encoder, seed uint64) *Generator {
	return &Generator{
		Pipeline: p,
		Encoder:  enc,
		Seed:     seed,
		Logger:   logging.Component("dataset"),
	}
}

func (g *Generator) workers() int {
	if g.Workers > 0 {
		return g.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// ProcessProfile 对单个画像执行 Pipeline 并编码被选中的候选。
func (g *Generator) ProcessProfile(ctx context.Context, seq int, prof *core.Profile) (*ProfileResult, error) {
	pctx := core.NewProfileContext(seq, prof, g.Seed)
	items, err := g.Pipeline.Run(ctx, pctx, nil)
	if err != nil {
		return nil, fmt.Errorf("profile %d: %w", seq, err)
	}
	res := &ProfileResult{
		Seq:        seq,
		Profile:    prof,
		Candidates: candidateCount(pctx),
		Discarded:  pctx.Discarded(),
	}
	if res.Discarded {
		return res, nil
	}
	res.Rows = make([]core.Row, 0, len(items))
	for _, it := range items {
		if !it.Labeled() {
			continue
		}
		row, err := g.Encoder.EncodeItem(seq, prof, it)
		if err != nil {
			return nil, fmt.Errorf("profile %d: %w", seq, err)
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

// Run 处理全部画像并写入 sink。任一画像出错（包括 schema 不一致）时中止，不写出任何行。
func (g *Generator) Run(ctx context.Context, profiles []*core.Profile, sink Sink) (Stats, error) {
	if g.Pipeline == nil || g.Encoder == nil {
		return Stats{}, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, "generator: pipeline and encoder are required")
	}
	header := g.Encoder.Schema().Header()
	if len(header) != g.Encoder.Width()+2 {
		return Stats{}, core.NewSchemaMismatch(core.ModuleDataset, "generator: header does not match encoder width")
	}

	results := make([]*ProfileResult, len(profiles))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers())
	for i, prof := range profiles {
		eg.Go(func() error {
			res, err := g.ProcessProfile(egCtx, i, prof)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Stats{}, err
	}

	if err := sink.WriteHeader(header); err != nil {
		return Stats{}, fmt.Errorf("write header: %w", err)
	}
	stats := Stats{Profiles: len(profiles)}
	for _, res := range results {
		g.Monitor.ObserveProfile(res)
		if res.Discarded {
			stats.Discarded++
			g.Logger.Debug().Int("seq", res.Seq).Int("candidates", res.Candidates).
				Str("profile", res.Profile.String()).Msg("profile discarded")
			continue
		}
		stats.Emitted++
		for _, row := range res.Rows {
			if err := sink.Write(row); err != nil {
				return stats, err
			}
			stats.Rows++
			if row.Label == core.LabelPositive {
				stats.Positives++
			} else {
				stats.Negatives++
			}
			g.Monitor.ObserveRow(row.Label)
		}
	}

	g.Logger.Info().
		Int("profiles", stats.Profiles).
		Int("emitted", stats.Emitted).
		Int("discarded", stats.Discarded).
		Int("rows", stats.Rows).
		Int("positives", stats.Positives).
		Int("negatives", stats.Negatives).
		Msg("dataset generated")
	return stats, nil
}

func candidateCount(pctx *core.ProfileContext) int {
	lbl, ok := pctx.GetLabel("candidates")
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(lbl.Value)
	return n
}
