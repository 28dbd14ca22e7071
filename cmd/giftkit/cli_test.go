package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/giftkit/core"
	"github.com/rushteam/giftkit/dataset"
	"github.com/rushteam/giftkit/feature"
)

// writeCatalog 写一个价格密集分布的测试目录，外加一行缺 id 的坏数据。
func writeCatalog(t *testing.T, dir string) string {
	t.Helper()
	kinds := []struct{ category, tags, title string }{
		{"kitchen|home", "coffee|mug", "Coffee Mug"},
		{"books", "books|reading", "Paperback Novel"},
		{"tech", "tech|gaming", "Wireless Mouse"},
		{"outdoors", "outdoors|travel", "Camping Lantern"},
	}
	var b strings.Builder
	b.WriteString("id,title,category,tags,price_min,price_max\n")
	for i := range 80 {
		k := kinds[i%len(kinds)]
		lo := (i * 2) % 150
		fmt.Fprintf(&b, "p%02d,%s %d,%s,%s,%d,%d\n", i, k.title, i, k.category, k.tags, lo, lo+20)
	}
	b.WriteString(",Nameless,misc,,1,2\n")
	path := filepath.Join(dir, "products.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newCLIApp(&out)
	err := app.Run(append([]string{"giftkit", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestParseList(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", nil},
		{"coffee", []string{"coffee"}},
		{" coffee , books ,, ", []string{"coffee", "books"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseList(tt.input), "input %q", tt.input)
	}
}

func TestSchemaInitAndCheck(t *testing.T) {
	schemaPath := filepath.Join(t.TempDir(), "feature_spec.json")

	out, err := run(t, "schema", "init", "--schema", schemaPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"feature_count": 31`)

	// 已存在时需要 --force
	_, err = run(t, "schema", "init", "--schema", schemaPath)
	require.Error(t, err)
	_, err = run(t, "schema", "init", "--schema", schemaPath, "--force")
	require.NoError(t, err)

	_, err = run(t, "schema", "check", "--schema", schemaPath)
	require.NoError(t, err)
	_, err = run(t, "schema", "check", "--schema", schemaPath, "--expect", "31")
	require.NoError(t, err)

	_, err = run(t, "schema", "check", "--schema", schemaPath, "--expect", "30")
	require.Error(t, err)
	assert.True(t, core.IsSchemaMismatch(err))
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeCatalog(t, dir)
	schemaPath := filepath.Join(dir, "feature_spec.json")
	output := filepath.Join(dir, "training_data.csv")
	metrics := filepath.Join(dir, "giftkit.prom")

	_, err := run(t, "schema", "init", "--schema", schemaPath)
	require.NoError(t, err)

	out, err := run(t, "generate",
		"--catalog", catalogPath,
		"--schema", schemaPath,
		"--output", output,
		"--profiles", "24",
		"--seed", "7",
		"--metrics", metrics,
	)
	require.NoError(t, err)

	var m dataset.Manifest
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, uint64(7), m.Seed)
	assert.Equal(t, 31, m.FeatureCount)
	assert.Equal(t, 80, m.CatalogProducts)
	assert.Equal(t, 1, m.CatalogSkipped)
	assert.Equal(t, 5, m.VocabularySize) // books, home, kitchen, outdoors, tech
	assert.Equal(t, 24, m.Stats.Profiles)
	assert.Equal(t, m.Stats.Profiles, m.Stats.Emitted+m.Stats.Discarded)
	assert.Equal(t, m.Stats.Rows, m.Stats.Positives+m.Stats.Negatives)
	assert.Positive(t, m.Stats.Emitted)

	onDisk, err := dataset.ReadManifest(dataset.ManifestPath(output))
	require.NoError(t, err)
	assert.Equal(t, m.RunID, onDisk.RunID)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, m.Stats.Rows+1)
	assert.Len(t, records[0], 33)
	assert.Equal(t, []string{"product_id", "label"}, records[0][31:])
	for _, r := range records[1:] {
		assert.Contains(t, []string{"0", "1"}, r[32])
	}

	// category_list 被写回 schema
	s, err := feature.LoadSchema(schemaPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"books", "home", "kitchen", "outdoors", "tech"}, s.CategoryList)

	_, err = os.Stat(metrics)
	assert.NoError(t, err)
}

func TestGenerate_Deterministic(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeCatalog(t, dir)
	schemaPath := filepath.Join(dir, "feature_spec.json")
	_, err := run(t, "schema", "init", "--schema", schemaPath)
	require.NoError(t, err)

	gen := func(name, workers string) []byte {
		output := filepath.Join(dir, name)
		_, err := run(t, "generate",
			"--catalog", catalogPath, "--schema", schemaPath, "--output", output,
			"--profiles", "16", "--seed", "42", "--workers", workers, "--no-manifest",
		)
		require.NoError(t, err)
		data, err := os.ReadFile(output)
		require.NoError(t, err)
		return data
	}

	a := gen("a.csv", "1")
	b := gen("b.csv", "4")
	assert.Equal(t, a, b)

	_, err = os.Stat(dataset.ManifestPath(filepath.Join(dir, "a.csv")))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerate_SQLite(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeCatalog(t, dir)
	schemaPath := filepath.Join(dir, "feature_spec.json")
	_, err := run(t, "schema", "init", "--schema", schemaPath)
	require.NoError(t, err)

	output := filepath.Join(dir, "training.db")
	_, err = run(t, "generate",
		"--catalog", catalogPath, "--schema", schemaPath, "--output", output,
		"--format", "sqlite", "--profiles", "8",
	)
	require.NoError(t, err)
	_, err = os.Stat(output)
	assert.NoError(t, err)
}

func TestGenerate_MissingResources(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeCatalog(t, dir)
	schemaPath := filepath.Join(dir, "feature_spec.json")
	output := filepath.Join(dir, "out.csv")

	_, err := run(t, "generate", "--catalog", catalogPath, "--schema", schemaPath, "--output", output)
	require.Error(t, err)
	assert.True(t, core.IsMissingResource(err))

	_, err = run(t, "schema", "init", "--schema", schemaPath)
	require.NoError(t, err)
	_, err = run(t, "generate", "--catalog", filepath.Join(dir, "nope.csv"), "--schema", schemaPath, "--output", output)
	require.Error(t, err)
	assert.True(t, core.IsMissingResource(err))

	// 不开始任何工作
	_, err = os.Stat(output)
	assert.True(t, os.IsNotExist(err))
}

func TestGenerate_FailedRunKeepsPreviousDataset(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeCatalog(t, dir)
	schemaPath := filepath.Join(dir, "feature_spec.json")
	_, err := run(t, "schema", "init", "--schema", schemaPath)
	require.NoError(t, err)

	for _, format := range []string{"csv", "sqlite"} {
		t.Run(format, func(t *testing.T) {
			output := filepath.Join(dir, "training_data."+format)
			_, err := run(t, "generate",
				"--catalog", catalogPath, "--schema", schemaPath, "--output", output,
				"--format", format, "--profiles", "8",
			)
			require.NoError(t, err)
			previous, err := os.ReadFile(output)
			require.NoError(t, err)
			require.NotEmpty(t, previous)

			// 表达式在求值时才报错，此时输出已经打开
			_, err = run(t, "generate",
				"--catalog", catalogPath, "--schema", schemaPath, "--output", output,
				"--format", format, "--profiles", "8", "--seed", "9",
				"--filter", "product.nosuch == 1",
			)
			require.Error(t, err)

			after, err := os.ReadFile(output)
			require.NoError(t, err)
			assert.Equal(t, previous, after)
			_, err = os.Stat(output + dataset.TempSuffix)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestGenerate_ExpectedFeatureCount(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeCatalog(t, dir)
	schemaPath := filepath.Join(dir, "feature_spec.json")
	_, err := run(t, "schema", "init", "--schema", schemaPath)
	require.NoError(t, err)

	_, err = run(t, "generate",
		"--catalog", catalogPath, "--schema", schemaPath,
		"--output", filepath.Join(dir, "out.csv"), "--expect", "30",
	)
	require.Error(t, err)
	assert.True(t, core.IsSchemaMismatch(err))
}

func TestVocab(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeCatalog(t, dir)
	schemaPath := filepath.Join(dir, "feature_spec.json")
	_, err := run(t, "schema", "init", "--schema", schemaPath)
	require.NoError(t, err)

	out, err := run(t, "vocab", "--catalog", catalogPath, "--schema", schemaPath, "--save-schema")
	require.NoError(t, err)

	var res vocabResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"books", "home", "kitchen", "outdoors", "tech"}, res.Tokens)
	assert.Equal(t, 80, res.Products)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, res.Fingerprint, 64)

	s, err := feature.LoadSchema(schemaPath)
	require.NoError(t, err)
	assert.Equal(t, res.Tokens, s.CategoryList)
}

func TestEncode(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeCatalog(t, dir)
	schemaPath := filepath.Join(dir, "feature_spec.json")
	_, err := run(t, "schema", "init", "--schema", schemaPath)
	require.NoError(t, err)
	_, err = run(t, "vocab", "--catalog", catalogPath, "--schema", schemaPath, "--save-schema")
	require.NoError(t, err)

	out, err := run(t, "encode",
		"--catalog", catalogPath, "--schema", schemaPath,
		"--occasion", "birthday", "--relationship", "friend", "--age", "25-34",
		"--budget-min", "20", "--budget-max", "40",
		"--interests", "coffee", "--limit", "3",
	)
	require.NoError(t, err)

	var res encodeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.FeatureNames, 31)
	require.Len(t, res.Candidates, 3)
	// coffee 同时命中标签(3)和标题(2)
	top := res.Candidates[0]
	assert.Equal(t, float64(5), top.Score)
	assert.Contains(t, []string{"p00", "p04", "p08", "p12", "p16", "p20"}, top.ProductID)
	assert.Len(t, top.Features, 31)
	assert.Equal(t, float64(1), top.Features[30]) // price_in_budget

	_, err = run(t, "encode", "--catalog", catalogPath, "--schema", schemaPath, "--budget-min", "50", "--budget-max", "10")
	assert.Error(t, err)
}
