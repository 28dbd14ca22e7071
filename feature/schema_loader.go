package feature

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rushteam/giftkit/core"
)

// SchemaLoader schema 加载器接口
// 支持从不同来源加载 schema（本地文件、HTTP 接口）
type SchemaLoader interface {
	// Load 加载 schema，source 是文件路径或 URL
	Load(ctx context.Context, source string) (*Schema, error)
}

// FileSchemaLoader 本地文件 schema 加载器
type FileSchemaLoader struct{}

// NewFileSchemaLoader 创建本地文件 schema 加载器
func NewFileSchemaLoader() *FileSchemaLoader {
	return &FileSchemaLoader{}
}

// Load 从本地文件加载 schema
func (l *FileSchemaLoader) Load(ctx context.Context, path string) (*Schema, error) {
	return LoadSchema(path)
}

// HTTPSchemaLoader 从 HTTP 接口加载 schema，推理服务与数据生成共享同一份 schema 时使用。
//
// 用法：
//
//	loader := feature.NewHTTPSchemaLoader(5 * time.Second)
//	schema, err := loader.Load(ctx, "http://models.internal/gift/v3/feature_spec.json")
type HTTPSchemaLoader struct {
	client *http.Client
}

// NewHTTPSchemaLoader 创建 HTTP schema 加载器，timeout 为 0 时默认 10s
func NewHTTPSchemaLoader(timeout time.Duration) *HTTPSchemaLoader {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSchemaLoader{client: &http.Client{Timeout: timeout}}
}

// NewHTTPSchemaLoaderWithClient 使用自定义 HTTP 客户端创建加载器
func NewHTTPSchemaLoaderWithClient(client *http.Client) *HTTPSchemaLoader {
	return &HTTPSchemaLoader{client: client}
}

// Load 从 HTTP 接口加载 schema；404 视为资源缺失。
func (l *HTTPSchemaLoader) Load(ctx context.Context, url string) (*Schema, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("schema request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, core.NewMissingResource(core.ModuleSchema, "schema "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, core.NewMissingResource(core.ModuleSchema, "schema "+url, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("schema request: status=%d, body=%s", resp.StatusCode, string(body))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read schema response: %w", err)
	}
	return ParseSchema(data)
}

// LoaderFor 根据 source 选择加载器：http(s):// 走 HTTP，其余视为本地路径。
func LoaderFor(source string) SchemaLoader {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return NewHTTPSchemaLoader(0)
	}
	return NewFileSchemaLoader()
}
