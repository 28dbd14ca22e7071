package dataset

import (
	"crypto/rand"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
)

// ManifestSuffix manifest 文件后缀，位于数据集旁边
const ManifestSuffix = ".manifest.json"

// Manifest 记录一次生成的可复现信息
type Manifest struct {
	RunID              string    `json:"run_id"`
	CreatedAt          time.Time `json:"created_at"`
	Seed               uint64    `json:"seed"`
	Workers            int       `json:"workers"`
	Output             string    `json:"output"`
	Format             string    `json:"format"`
	SchemaVersion      string    `json:"schema_version"`
	FeatureCount       int       `json:"feature_count"`
	CatalogFingerprint string    `json:"catalog_fingerprint"`
	CatalogProducts    int       `json:"catalog_products"`
	CatalogSkipped     int       `json:"catalog_skipped"`
	VocabularySize     int       `json:"vocabulary_size"`
	VocabularyReused   bool      `json:"vocabulary_reused"`
	Stats              Stats     `json:"stats"`
}

// NewRunID 生成 ULID 运行 ID
func NewRunID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// ManifestPath 返回数据集对应的 manifest 路径
func ManifestPath(output string) string {
	return output + ManifestSuffix
}

// WriteManifest 写 manifest（缩进 JSON）
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest 读取 manifest
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
