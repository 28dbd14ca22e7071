package feature

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/rushteam/giftkit/core"
)

// DefaultVocabularyPrefix 词表快照 key 前缀
const DefaultVocabularyPrefix = "giftkit:vocab:"

// VocabularyRegistry 按商品目录指纹持久化类目词表快照。
//
// 同一份目录重复生成数据集时复用已持久化的词表；重建结果与快照不一致说明
// 类目下标不再稳定，返回 SCHEMA_MISMATCH。
type VocabularyRegistry struct {
	store  core.Store
	prefix string
}

type vocabularySnapshot struct {
	Fingerprint string   `json:"fingerprint"`
	Tokens      []string `json:"tokens"`
}

// NewVocabularyRegistry 创建词表注册表，prefix 为空时使用 DefaultVocabularyPrefix
func NewVocabularyRegistry(store core.Store, prefix string) *VocabularyRegistry {
	if prefix == "" {
		prefix = DefaultVocabularyPrefix
	}
	return &VocabularyRegistry{store: store, prefix: prefix}
}

// Key 返回指纹对应的存储 key
func (r *VocabularyRegistry) Key(fingerprint string) string {
	return r.prefix + fingerprint
}

// Get 读取快照，不存在时返回 core.ErrStoreNotFound。
func (r *VocabularyRegistry) Get(ctx context.Context, fingerprint string) (*CategoryVocabulary, error) {
	data, err := r.store.Get(ctx, r.Key(fingerprint))
	if err != nil {
		return nil, err
	}
	var snap vocabularySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeInternalError, "decode vocabulary snapshot", err)
	}
	return NewCategoryVocabulary(snap.Tokens), nil
}

// Put 写入快照（永不过期）
func (r *VocabularyRegistry) Put(ctx context.Context, fingerprint string, v *CategoryVocabulary) error {
	data, err := json.Marshal(vocabularySnapshot{Fingerprint: fingerprint, Tokens: v.Tokens()})
	if err != nil {
		return fmt.Errorf("encode vocabulary snapshot: %w", err)
	}
	return r.store.Set(ctx, r.Key(fingerprint), data)
}

// Resolve 用快照校验新构建的词表：
//   - 没有快照：写入 built，返回 (built, false)
//   - 快照一致：返回 (快照, true)
//   - 快照不一致：返回 SCHEMA_MISMATCH
//
// fingerprint 是原始目录文件字节的 sha256，而词表构建对同一份字节是确定的，
// 所以同一指纹下快照不一致只会出现在两次运行之间目录解析或标签规范化逻辑
// 发生变化时，不是常规运行中会遇到的情况。
func (r *VocabularyRegistry) Resolve(ctx context.Context, fingerprint string, built *CategoryVocabulary) (*CategoryVocabulary, bool, error) {
	persisted, err := r.Get(ctx, fingerprint)
	switch {
	case core.IsStoreNotFound(err):
		if err := r.Put(ctx, fingerprint, built); err != nil {
			return nil, false, err
		}
		return built, false, nil
	case err != nil:
		return nil, false, err
	}
	if !persisted.Equal(built) {
		return nil, false, core.NewSchemaMismatch(core.ModuleSchema,
			fmt.Sprintf("vocabulary for catalog %s changed: persisted %d tokens, rebuilt %d", fingerprint, persisted.Len(), built.Len()))
	}
	return persisted, true, nil
}
