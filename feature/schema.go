package feature

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/rushteam/giftkit/core"
)

// SchemaVersion 默认 schema 版本
const SchemaVersion = "1"

// 画像侧 / 商品侧固定数值特征的个数（不含 one-hot 块）。
const (
	profileNumericFeatures = 4 // budget_min, budget_max, interest_count, daily_life_count
	productNumericFeatures = 5 // category_id, price_min, price_max, tag_overlap, price_in_budget
)

// Schema 特征向量布局与归一化常量，对应 feature_spec.json。
//
// 数据集生成与推理期编码共用同一份 Schema，字段顺序即向量顺序。
type Schema struct {
	// Version schema 版本
	Version string `json:"version,omitempty"`
	// FeatureNames 特征名（按向量顺序），长度即特征数量
	FeatureNames []string `json:"feature_names"`

	OccasionValues     []string `json:"occasion_values"`
	RelationshipValues []string `json:"relationship_values"`
	AgeRangeValues     []string `json:"age_range_values"`
	DailyLifeValues    []string `json:"daily_life_values"`

	BudgetMaxNorm     float64 `json:"budget_max_norm"`
	PriceMaxNorm      float64 `json:"price_max_norm"`
	MaxInterestCount  float64 `json:"max_interest_count"`
	MaxDailyLifeCount float64 `json:"max_daily_life_count"`
	MaxTagOverlap     float64 `json:"max_tag_overlap"`

	// CategoryList 由 CategoryVocabulary 生成，每次生成数据集时覆盖
	CategoryList []string `json:"category_list"`
	// CategoryUnknownID 未命中类目时的 ID；与 category_list[0] 重叠
	CategoryUnknownID int `json:"category_unknown_id"`

	// extra 文件中其它字段（例如训练脚本写入的元数据），Save 时原样写回
	extra map[string]json.RawMessage
}

// schemaKeys Schema 结构体自身的 JSON 字段
var schemaKeys = []string{
	"version", "feature_names",
	"occasion_values", "relationship_values", "age_range_values", "daily_life_values",
	"budget_max_norm", "price_max_norm", "max_interest_count", "max_daily_life_count", "max_tag_overlap",
	"category_list", "category_unknown_id",
}

// DefaultSchema 返回默认 schema：8 个场合、7 种关系、7 个年龄段，共 31 维。
func DefaultSchema() *Schema {
	s := &Schema{
		Version:            SchemaVersion,
		OccasionValues:     []string{"birthday", "anniversary", "housewarming", "graduation", "thank-you", "holiday", "baby-shower", "other"},
		RelationshipValues: []string{"friend", "partner", "parent", "coworker", "sibling", "child", "other"},
		AgeRangeValues:     []string{"0-12", "13-17", "18-24", "25-34", "35-44", "45-54", "55+"},
		DailyLifeValues:    []string{"student", "office", "remote_worker", "gamer", "gym", "traveler", "new_parent", "cooking", "outdoors", "creative", "pet_lover", "other"},
		BudgetMaxNorm:      150,
		PriceMaxNorm:       500,
		MaxInterestCount:   5,
		MaxDailyLifeCount:  4,
		MaxTagOverlap:      5,
		CategoryList:       []string{},
		CategoryUnknownID:  CategoryUnknownID,
	}
	s.FeatureNames = s.DefaultFeatureNames()
	return s
}

// DefaultFeatureNames 按当前枚举生成特征名。
func (s *Schema) DefaultFeatureNames() []string {
	names := make([]string, 0, s.ExpectedWidth())
	for _, v := range s.OccasionValues {
		names = append(names, "occasion_"+v)
	}
	for _, v := range s.RelationshipValues {
		names = append(names, "relationship_"+v)
	}
	for _, v := range s.AgeRangeValues {
		names = append(names, "age_"+v)
	}
	return append(names,
		"budget_min_norm", "budget_max_norm", "interest_count_norm", "daily_life_count_norm",
		"category_id", "price_min_norm", "price_max_norm", "tag_overlap_norm", "price_in_budget",
	)
}

// ExpectedWidth 由枚举推导出的向量宽度。
func (s *Schema) ExpectedWidth() int {
	return len(s.OccasionValues) + len(s.RelationshipValues) + len(s.AgeRangeValues) +
		profileNumericFeatures + productNumericFeatures
}

// FeatureCount 声明的特征数量
func (s *Schema) FeatureCount() int {
	return len(s.FeatureNames)
}

// Header 输出数据集表头：feature_names + product_id, label。
func (s *Schema) Header() []string {
	h := make([]string, 0, len(s.FeatureNames)+2)
	h = append(h, s.FeatureNames...)
	return append(h, "product_id", "label")
}

// SetCategoryList 用词表覆盖 category_list。
func (s *Schema) SetCategoryList(v *CategoryVocabulary) {
	s.CategoryList = v.Tokens()
	if s.CategoryList == nil {
		s.CategoryList = []string{}
	}
	s.CategoryUnknownID = CategoryUnknownID
}

// Vocabulary 从 category_list 恢复词表（推理期编码使用）。
func (s *Schema) Vocabulary() *CategoryVocabulary {
	return NewCategoryVocabulary(s.CategoryList)
}

// Validate 校验 schema 自洽；expected > 0 时同时校验特征数量等于 expected。
func (s *Schema) Validate(expected int) error {
	switch {
	case len(s.OccasionValues) == 0, len(s.RelationshipValues) == 0, len(s.AgeRangeValues) == 0:
		return core.NewDomainError(core.ModuleSchema, core.ErrorCodeInvalidInput, "schema: enumerations must not be empty")
	case s.BudgetMaxNorm <= 0, s.PriceMaxNorm <= 0, s.MaxInterestCount <= 0, s.MaxDailyLifeCount <= 0, s.MaxTagOverlap <= 0:
		return core.NewDomainError(core.ModuleSchema, core.ErrorCodeInvalidInput, "schema: normalization constants must be positive")
	}
	if err := s.checkFeatureNames(); err != nil {
		return err
	}
	if expected > 0 && expected != len(s.FeatureNames) {
		return core.NewSchemaMismatch(core.ModuleSchema,
			fmt.Sprintf("schema: %d features, consumer expects %d", len(s.FeatureNames), expected))
	}
	return nil
}

// checkFeatureNames feature_names 必须与编码器输出逐位一致（数量与顺序）。
func (s *Schema) checkFeatureNames() error {
	want := s.DefaultFeatureNames()
	if len(want) != len(s.FeatureNames) {
		return core.NewSchemaMismatch(core.ModuleSchema,
			fmt.Sprintf("schema: encoder width %d != %d feature_names", len(want), len(s.FeatureNames)))
	}
	for i, name := range s.FeatureNames {
		if name != want[i] {
			return core.NewSchemaMismatch(core.ModuleSchema,
				fmt.Sprintf("schema: feature_names[%d] is %q, encoder emits %q", i, name, want[i]))
		}
	}
	return nil
}

// LoadSchema 从本地文件加载 schema；文件不存在返回 MISSING_RESOURCE。
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewMissingResource(core.ModuleSchema, "schema "+path, err)
		}
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema 解析 schema JSON
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, core.WrapDomainError(core.ModuleSchema, core.ErrorCodeInvalidInput, "parse schema", err)
	}
	if s.CategoryList == nil {
		s.CategoryList = []string{}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, core.WrapDomainError(core.ModuleSchema, core.ErrorCodeInvalidInput, "parse schema", err)
	}
	for _, k := range schemaKeys {
		delete(doc, k)
	}
	if len(doc) > 0 {
		s.extra = doc
	}
	return &s, nil
}

// Save 将 schema 写回文件（缩进 JSON），加载时的其它字段一并保留。先写临时文件再 rename。
func (s *Schema) Save(path string) error {
	data, err := s.marshal()
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	return nil
}

func (s *Schema) marshal() ([]byte, error) {
	if len(s.extra) == 0 {
		return json.MarshalIndent(s, "", "  ")
	}
	known, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(known, &doc); err != nil {
		return nil, err
	}
	for k, v := range s.extra {
		if _, ok := doc[k]; !ok {
			doc[k] = v
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}
