package core

// CandidateSource 按预算窗口返回候选商品。
// 返回结果必须精确满足 Product.InBudget；顺序稳定（同一输入多次调用结果一致）。
type CandidateSource interface {
	Candidates(budgetMin, budgetMax int) []*Product
	Len() int
}
