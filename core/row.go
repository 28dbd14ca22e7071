package core

// Row 是一条训练样本：(profile, product) 的特征向量 + 商品 ID + 标签。
// 产出后不再修改，数据集只追加。
type Row struct {
	ProfileSeq int
	ProductID  string
	Features   []float64
	Label      int
}
