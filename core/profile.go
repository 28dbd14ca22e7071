package core

import (
	"fmt"
	"sort"
	"strings"
)

// Profile 是送礼对象画像：场合、关系、年龄段、预算、兴趣与日常标签。
//
// DerivedTags 由构造函数根据其余字段确定性地推导，是打分与重叠特征的唯一输入，
// 不允许单独修改。
type Profile struct {
	Occasion     string
	Relationship string
	AgeRange     string
	BudgetMin    int
	BudgetMax    int
	Interests    []string
	DailyLife    []string

	derived []string
}

// NewProfile 创建画像并推导 DerivedTags。
// 兴趣与日常标签会被规范化（小写、空白转 "_"）并去重，空值丢弃。
func NewProfile(occasion, relationship, ageRange string, budgetMin, budgetMax int, interests, dailyLife []string) (*Profile, error) {
	if budgetMin > budgetMax {
		return nil, NewDomainError(ModuleDataset, ErrorCodeInvalidInput,
			fmt.Sprintf("profile: budget_min %d > budget_max %d", budgetMin, budgetMax))
	}
	p := &Profile{
		Occasion:     NormalizeTag(occasion),
		Relationship: NormalizeTag(relationship),
		AgeRange:     NormalizeTag(ageRange),
		BudgetMin:    budgetMin,
		BudgetMax:    budgetMax,
		Interests:    normalizeTags(interests),
		DailyLife:    normalizeTags(dailyLife),
	}
	p.derived = deriveTags(p)
	return p, nil
}

// DerivedTags 返回排序去重后的派生标签集合（只读）。
func (p *Profile) DerivedTags() []string {
	return p.derived
}

// InterestCount 兴趣数量（去重后）。
func (p *Profile) InterestCount() int { return len(p.Interests) }

// DailyLifeCount 日常标签数量（去重后）。
func (p *Profile) DailyLifeCount() int { return len(p.DailyLife) }

func (p *Profile) String() string {
	return fmt.Sprintf("%s/%s/%s [%d,%d] %v", p.Occasion, p.Relationship, p.AgeRange, p.BudgetMin, p.BudgetMax, p.derived)
}

func deriveTags(p *Profile) []string {
	all := make([]string, 0, 3+len(p.Interests)+len(p.DailyLife))
	for _, t := range []string{p.Occasion, p.Relationship, p.AgeRange} {
		if t != "" {
			all = append(all, t)
		}
	}
	all = append(all, p.Interests...)
	all = append(all, p.DailyLife...)
	return sortedSet(all)
}

// NormalizeTag 小写、去首尾空白，内部连续空白替换为 "_"。
func NormalizeTag(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = NormalizeTag(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func sortedSet(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
