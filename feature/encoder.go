package feature

import (
	"fmt"

	"github.com/rushteam/giftkit/core"
)

// Encoder 将 (profile, product) 编码为定长特征向量，布局由 Schema 决定：
//
//	[occasion one-hot][relationship one-hot][age one-hot]
//	budget_min, budget_max, interest_count, daily_life_count   (归一化并截断到 ≤ 1)
//	category_id                                                (原始整数下标)
//	price_min, price_max, tag_overlap                          (归一化并截断到 ≤ 1)
//	price_in_budget                                            (0/1)
//
// Encoder 构造后只读，可在多个 goroutine 中并发使用；相同输入得到逐位相同的向量。
type Encoder struct {
	schema *Schema
	vocab  *CategoryVocabulary

	occasion     map[string]int
	relationship map[string]int
	ageRange     map[string]int
	width        int
}

// NewEncoder 创建编码器。schema 的 feature_names 必须与编码输出的数量和顺序一致，
// 否则返回 SCHEMA_MISMATCH。vocab 为 nil 时使用 schema.CategoryList。
func NewEncoder(schema *Schema, vocab *CategoryVocabulary) (*Encoder, error) {
	if schema == nil {
		return nil, core.NewMissingResource(core.ModuleSchema, "schema", nil)
	}
	if err := schema.checkFeatureNames(); err != nil {
		return nil, err
	}
	if vocab == nil {
		vocab = schema.Vocabulary()
	}
	return &Encoder{
		schema:       schema,
		vocab:        vocab,
		occasion:     indexOf(schema.OccasionValues),
		relationship: indexOf(schema.RelationshipValues),
		ageRange:     indexOf(schema.AgeRangeValues),
		width:        schema.FeatureCount(),
	}, nil
}

// Width 向量宽度，等于 len(feature_names)
func (e *Encoder) Width() int { return e.width }

// Schema 返回编码器使用的 schema
func (e *Encoder) Schema() *Schema { return e.schema }

// Vocabulary 返回编码器使用的类目词表
func (e *Encoder) Vocabulary() *CategoryVocabulary { return e.vocab }

// Encode 编码一个 (profile, product) 对。
func (e *Encoder) Encode(profile *core.Profile, product *core.Product) ([]float64, error) {
	if profile == nil || product == nil {
		return nil, core.NewDomainError(core.ModuleSchema, core.ErrorCodeInvalidInput, "encode: profile and product are required")
	}
	s := e.schema
	vec := make([]float64, 0, e.width)

	vec = appendOneHot(vec, len(s.OccasionValues), e.occasion[profile.Occasion])
	vec = appendOneHot(vec, len(s.RelationshipValues), e.relationship[profile.Relationship])
	vec = appendOneHot(vec, len(s.AgeRangeValues), e.ageRange[profile.AgeRange])

	vec = append(vec,
		clampRatio(float64(profile.BudgetMin), s.BudgetMaxNorm),
		clampRatio(float64(profile.BudgetMax), s.BudgetMaxNorm),
		clampRatio(float64(profile.InterestCount()), s.MaxInterestCount),
		clampRatio(float64(profile.DailyLifeCount()), s.MaxDailyLifeCount),
	)

	vec = append(vec,
		float64(e.vocab.CategoryToID(product.Category)),
		clampRatio(float64(product.PriceMin), s.PriceMaxNorm),
		clampRatio(float64(product.PriceMax), s.PriceMaxNorm),
		clampRatio(float64(product.TagOverlap(profile.DerivedTags())), s.MaxTagOverlap),
		boolFeature(product.InBudget(profile.BudgetMin, profile.BudgetMax)),
	)

	if len(vec) != e.width {
		return nil, core.NewSchemaMismatch(core.ModuleSchema,
			fmt.Sprintf("encode: produced %d features, schema declares %d", len(vec), e.width))
	}
	return vec, nil
}

// EncodeItem 编码一个已打标签的候选，生成数据集行。
func (e *Encoder) EncodeItem(seq int, profile *core.Profile, item *core.Item) (core.Row, error) {
	vec, err := e.Encode(profile, item.Product)
	if err != nil {
		return core.Row{}, err
	}
	return core.Row{ProfileSeq: seq, ProductID: item.ID, Features: vec, Label: item.Label}, nil
}

// indexOf 枚举值 -> 下标；未知值查不到时得到 0，即落入块内第 0 位。
func indexOf(values []string) map[string]int {
	m := make(map[string]int, len(values))
	for i, v := range values {
		key := core.NormalizeTag(v)
		if _, ok := m[key]; !ok {
			m[key] = i
		}
	}
	return m
}

func appendOneHot(vec []float64, width, hot int) []float64 {
	for i := range width {
		vec = append(vec, boolFeature(i == hot))
	}
	return vec
}

// clampRatio 返回 min(1, v/norm)
func clampRatio(v, norm float64) float64 {
	r := v / norm
	if r > 1 {
		return 1
	}
	return r
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
