package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/giftkit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，声明 product / profile 两个变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("product", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("profile", cel.MapType(cel.StringType, cel.DynType)),
	)
}

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Program 是编译好的商品表达式，使用 CEL (Common Expression Language)。
// 编译一次，可在多个 goroutine 中并发 Eval。
//
// 可用字段：
//   - product.id / title / category / tags / price_min / price_max
//   - profile.occasion / relationship / age_range / budget_min / budget_max
//     / interests / daily_life / derived_tags
//
// 示例：
//   - `product.price_max > 0`
//   - `"adult" in product.tags && profile.age_range == "0-12"`
//   - `product.category.contains("toys")`
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式；空表达式恒为 true。
func Compile(expr string) (*Program, error) {
	if expr == "" {
		return &Program{}, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if t := ast.OutputType(); t != cel.BoolType && t != cel.DynType {
		return nil, fmt.Errorf("expression must return bool, got %s", t)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Eval 对 (product, profile) 求值，profile 可为 nil。
func (p *Program) Eval(product *core.Product, profile *core.Profile) (bool, error) {
	if p == nil || p.prg == nil {
		return true, nil
	}
	out, _, err := p.prg.Eval(map[string]any{
		"product": productInput(product),
		"profile": profileInput(profile),
	})
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return bool, got %T", out.Value())
	}
	return result, nil
}

func productInput(p *core.Product) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return map[string]any{
		"id":        p.ID,
		"title":     p.Title,
		"category":  p.Category,
		"tags":      nonNil(p.Tags),
		"price_min": int64(p.PriceMin),
		"price_max": int64(p.PriceMax),
	}
}

func profileInput(p *core.Profile) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return map[string]any{
		"occasion":     p.Occasion,
		"relationship": p.Relationship,
		"age_range":    p.AgeRange,
		"budget_min":   int64(p.BudgetMin),
		"budget_max":   int64(p.BudgetMax),
		"interests":    nonNil(p.Interests),
		"daily_life":   nonNil(p.DailyLife),
		"derived_tags": nonNil(p.DerivedTags()),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
