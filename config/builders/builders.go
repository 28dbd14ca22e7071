// Package builders 在 init 中注册内置 Node，import _ 即可被配置驱动。
package builders

import (
	"fmt"

	"github.com/rushteam/giftkit/config"
	"github.com/rushteam/giftkit/filter"
	"github.com/rushteam/giftkit/pipeline"
	"github.com/rushteam/giftkit/pkg/conv"
	"github.com/rushteam/giftkit/rank"
	"github.com/rushteam/giftkit/recall"
	"github.com/rushteam/giftkit/rerank"
)

func init() {
	config.Register("recall.budget", BuildBudgetRecallNode)
	config.Register("filter", BuildFilterNode)
	config.Register("rank.keyword", BuildKeywordNode)
	config.Register(config.LabelNodeType, BuildLabelNode)
}

// BuildBudgetRecallNode 使用 env.Source 作为候选来源。
func BuildBudgetRecallNode(_ map[string]any, env *pipeline.Env) (pipeline.Node, error) {
	if env == nil || env.Source == nil {
		return nil, fmt.Errorf("recall.budget: candidate source not provided")
	}
	return &recall.BudgetRecall{Source: env.Source}, nil
}

// BuildFilterNode
//
//	filters:
//	  - type: blacklist
//	    item_ids: [p1, p2]
//	  - type: expr
//	    expr: 'product.price_max > 0'
func BuildFilterNode(cfg map[string]any, _ *pipeline.Env) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		switch filterType := conv.ConfigGet(filterMap, "type", ""); filterType {
		case "blacklist":
			filters = append(filters, filter.NewBlacklistFilter(conv.ConfigGetStrings(filterMap, "item_ids")))
		case "expr":
			f, err := filter.NewExprFilter(conv.ConfigGet(filterMap, "expr", ""))
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters}, nil
}

// BuildKeywordNode 可选权重：tag_weight / title_weight / category_weight
func BuildKeywordNode(cfg map[string]any, _ *pipeline.Env) (pipeline.Node, error) {
	s := rank.NewKeywordScorer()
	s.TagWeight = conv.ConfigGetInt(cfg, "tag_weight", s.TagWeight)
	s.TitleWeight = conv.ConfigGetInt(cfg, "title_weight", s.TitleWeight)
	s.CategoryWeight = conv.ConfigGetInt(cfg, "category_weight", s.CategoryWeight)
	return &rank.KeywordNode{Scorer: s}, nil
}

// BuildLabelNode 读取 top_positive / negative_per_profile / min_slack。
func BuildLabelNode(cfg map[string]any, _ *pipeline.Env) (pipeline.Node, error) {
	sel := &rerank.Selector{
		TopPositive:        conv.ConfigGetInt(cfg, "top_positive", rerank.DefaultTopPositive),
		NegativePerProfile: conv.ConfigGetInt(cfg, "negative_per_profile", rerank.DefaultNegativePerProfile),
		MinSlack:           conv.ConfigGetInt(cfg, "min_slack", rerank.DefaultMinSlack),
	}
	if sel.TopPositive <= 0 {
		return nil, fmt.Errorf("rerank.label: top_positive must be positive")
	}
	if sel.NegativePerProfile < 0 || sel.MinSlack < 0 {
		return nil, fmt.Errorf("rerank.label: negative_per_profile and min_slack must not be negative")
	}
	return &rerank.LabelNode{Selector: sel}, nil
}
