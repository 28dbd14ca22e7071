package store

import (
	"context"
	"fmt"

	"github.com/rushteam/giftkit/core"
)

// Open 按后端名称创建 Store：memory（默认）或 redis。
func Open(ctx context.Context, backend, redisAddr string, redisDB int) (core.Store, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		if redisAddr == "" {
			return nil, fmt.Errorf("store: redis backend requires redis_addr")
		}
		return NewRedisStore(ctx, redisAddr, redisDB)
	default:
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotSupported,
			fmt.Sprintf("store: unknown backend %q", backend))
	}
}
