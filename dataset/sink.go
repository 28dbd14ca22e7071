package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rushteam/giftkit/core"
)

// Sink 数据集输出。WriteHeader 必须先于 Write 调用一次。
//
// 文件输出先写到 path+TempSuffix，Close 成功后才 rename 到 path；
// Abort 丢弃临时文件，已有的数据集保持不变。
type Sink interface {
	// WriteHeader 写表头：feature_names + product_id, label
	WriteHeader(header []string) error
	// Write 写一行；特征数与表头不一致时返回 SCHEMA_MISMATCH
	Write(row core.Row) error
	// Close 提交输出
	Close() error
	// Abort 丢弃已写入的内容
	Abort() error
}

// TempSuffix 生成过程中临时文件的后缀
const TempSuffix = ".tmp"

// checkWidth 表头 = 特征 + product_id + label
func checkWidth(header []string, row core.Row) error {
	if header == nil {
		return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInternalError, "sink: header not written")
	}
	if len(row.Features)+2 != len(header) {
		return core.NewSchemaMismatch(core.ModuleDataset,
			fmt.Sprintf("row for %s has %d features, header declares %d", row.ProductID, len(row.Features), len(header)-2))
	}
	if row.Label != core.LabelPositive && row.Label != core.LabelNegative {
		return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("row for %s has label %d", row.ProductID, row.Label))
	}
	return nil
}

// CSVSink 写 CSV 数据集，浮点数使用最短表示。
type CSVSink struct {
	w      *csv.Writer
	closer io.Closer
	// path / tmp 仅文件输出时设置
	path   string
	tmp    string
	done   bool
	header []string
	record []string
}

// NewCSVSink 写到 w；Close 只 flush，不关闭 w。
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w)}
}

// CreateCSVSink 写到 path+TempSuffix；Close 时关闭文件并 rename 覆盖 path。
func CreateCSVSink(path string) (*CSVSink, error) {
	tmp := path + TempSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create dataset: %w", err)
	}
	s := NewCSVSink(f)
	s.closer = f
	s.path, s.tmp = path, tmp
	return s, nil
}

func (s *CSVSink) WriteHeader(header []string) error {
	s.header = append([]string(nil), header...)
	s.record = make([]string, len(header))
	return s.w.Write(s.header)
}

func (s *CSVSink) Write(row core.Row) error {
	if err := checkWidth(s.header, row); err != nil {
		return err
	}
	for i, v := range row.Features {
		s.record[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	n := len(row.Features)
	s.record[n] = row.ProductID
	s.record[n+1] = strconv.Itoa(row.Label)
	return s.w.Write(s.record)
}

func (s *CSVSink) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	if s.tmp == "" {
		return err
	}
	if err != nil {
		os.Remove(s.tmp)
		return err
	}
	if err := os.Rename(s.tmp, s.path); err != nil {
		os.Remove(s.tmp)
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}

// Abort 关闭并删除临时文件；写到 io.Writer 时只停止写入。
func (s *CSVSink) Abort() error {
	if s.done {
		return nil
	}
	s.done = true
	var err error
	if s.closer != nil {
		err = s.closer.Close()
	}
	if s.tmp != "" {
		if rerr := os.Remove(s.tmp); rerr != nil && !os.IsNotExist(rerr) && err == nil {
			err = rerr
		}
	}
	return err
}

// MemorySink 把行保存在内存中，用于测试。
type MemorySink struct {
	Header []string
	Rows   []core.Row
}

func (s *MemorySink) WriteHeader(header []string) error {
	s.Header = append([]string(nil), header...)
	return nil
}

func (s *MemorySink) Write(row core.Row) error {
	if err := checkWidth(s.Header, row); err != nil {
		return err
	}
	s.Rows = append(s.Rows, row)
	return nil
}

func (s *MemorySink) Close() error { return nil }

// Abort 清空已写入的行
func (s *MemorySink) Abort() error {
	s.Rows = nil
	return nil
}

// Open 按格式打开输出：csv（默认）或 sqlite。
func Open(format, path string) (Sink, error) {
	switch format {
	case "", FormatCSV:
		if path == "" || path == "-" {
			return NewCSVSink(os.Stdout), nil
		}
		return CreateCSVSink(path)
	case FormatSQLite:
		return OpenSQLiteSink(path)
	default:
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeNotSupported, "unsupported output format: "+format)
	}
}

// 输出格式
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)
