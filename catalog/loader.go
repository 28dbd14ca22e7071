// Package catalog 读取商品目录 CSV（id,title,category,tags,price_min,price_max）。
//
// 列按表头名称定位，顺序无关；tags / category 以 "|" 连接。
// 缺少 id 或价格无法解析的行被跳过并计数，不会中断加载。
package catalog

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rushteam/giftkit/core"
	"github.com/rushteam/giftkit/pkg/logging"
)

// 列名
const (
	ColumnID       = "id"
	ColumnTitle    = "title"
	ColumnCategory = "category"
	ColumnTags     = "tags"
	ColumnPriceMin = "price_min"
	ColumnPriceMax = "price_max"
)

// LoadResult 加载结果
type LoadResult struct {
	Products []*core.Product
	// Skipped 被跳过的数据行数（缺 id、价格无法解析、CSV 行格式错误）
	Skipped int
	// Fingerprint 目录原始字节的 sha256（hex），用于词表快照
	Fingerprint string
}

// Load 从文件加载目录；文件不存在返回 MISSING_RESOURCE。
func Load(path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewMissingResource(core.ModuleCatalog, "catalog "+path, err)
		}
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read 从 reader 读取目录，同时计算指纹。
func Read(r io.Reader) (*LoadResult, error) {
	log := logging.Component("catalog")
	h := sha256.New()
	reader := csv.NewReader(io.TeeReader(r, h))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput, "catalog: empty file, header required")
		}
		return nil, core.WrapDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput, "catalog: read header", err)
	}
	cols := columnIndex(header)
	if _, ok := cols[ColumnID]; !ok {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput, "catalog: missing id column")
	}

	res := &LoadResult{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Skipped++
				log.Debug().Int("line", line).Err(err).Msg("skip malformed row")
				continue
			}
			return nil, fmt.Errorf("read catalog: %w", err)
		}

		p, reason := parseRecord(record, cols)
		if p == nil {
			res.Skipped++
			log.Debug().Int("line", line).Str("reason", reason).Msg("skip row")
			continue
		}
		res.Products = append(res.Products, p)
	}

	res.Fingerprint = hex.EncodeToString(h.Sum(nil))
	return res, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, ok := cols[name]; !ok {
			cols[name] = i
		}
	}
	return cols
}

func parseRecord(record []string, cols map[string]int) (*core.Product, string) {
	get := func(col string) string {
		i, ok := cols[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	id := get(ColumnID)
	if id == "" {
		return nil, "missing id"
	}
	priceMin, ok := parsePrice(get(ColumnPriceMin))
	if !ok {
		return nil, "bad price_min"
	}
	priceMax, ok := parsePrice(get(ColumnPriceMax))
	if !ok {
		return nil, "bad price_max"
	}
	p, err := core.NewProduct(id, get(ColumnTitle), get(ColumnCategory), SplitTags(get(ColumnTags)), priceMin, priceMax)
	if err != nil {
		return nil, err.Error()
	}
	return p, ""
}

// SplitTags 按 "|" 拆分标签字段
func SplitTags(field string) []string {
	if field == "" {
		return nil
	}
	return strings.Split(field, core.CategoryDelimiter)
}

// parsePrice 空值视为 0；整数直接解析，小数向零截断。
func parsePrice(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}
