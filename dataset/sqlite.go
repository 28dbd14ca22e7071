package dataset

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/rushteam/giftkit/core"
)

const sqliteSchema = `
CREATE TABLE meta (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
CREATE TABLE rows (
  seq         INTEGER PRIMARY KEY,
  profile_seq INTEGER NOT NULL,
  product_id  TEXT NOT NULL,
  label       INTEGER NOT NULL,
  features    TEXT NOT NULL
);
CREATE INDEX idx_rows_profile ON rows(profile_seq);
`

// SQLiteSink 把数据集写入 SQLite：meta 表保存表头，rows 表每行一个样本，
// features 为 JSON 数组。整个数据集在一个事务中写入临时库，Close 时提交并 rename 到 path。
type SQLiteSink struct {
	path   string
	tmp    string
	db     *sql.DB
	tx     *sql.Tx
	stmt   *sql.Stmt
	header []string
	seq    int
}

// OpenSQLiteSink 在 path+TempSuffix 创建新库；Close 成功后覆盖 path。
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	tmp := path + TempSuffix
	if err := removeSQLiteFiles(tmp); err != nil {
		return nil, fmt.Errorf("remove stale dataset: %w", err)
	}
	db, err := sql.Open("sqlite", tmp+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		removeSQLiteFiles(tmp)
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &SQLiteSink{path: path, tmp: tmp, db: db}, nil
}

// removeSQLiteFiles 删除库文件及 WAL / SHM
func removeSQLiteFiles(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *SQLiteSink) WriteHeader(header []string) error {
	data, err := json.Marshal(header)
	if err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES ('header', ?)`, string(data)); err != nil {
		tx.Rollback()
		return fmt.Errorf("write header: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO rows(seq, profile_seq, product_id, label, features) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	s.tx, s.stmt = tx, stmt
	s.header = append([]string(nil), header...)
	return nil
}

func (s *SQLiteSink) Write(row core.Row) error {
	if err := checkWidth(s.header, row); err != nil {
		return err
	}
	feats, err := json.Marshal(row.Features)
	if err != nil {
		return err
	}
	if _, err := s.stmt.Exec(s.seq, row.ProfileSeq, row.ProductID, row.Label, string(feats)); err != nil {
		return fmt.Errorf("insert row: %w", err)
	}
	s.seq++
	return nil
}

// SetMeta 写入额外的元数据（例如 run_id、seed）。必须在 WriteHeader 之后调用。
func (s *SQLiteSink) SetMeta(key, value string) error {
	if s.tx == nil {
		return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInternalError, "sqlite sink: header not written")
	}
	_, err := s.tx.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES (?, ?)`, key, value)
	return err
}

func (s *SQLiteSink) Close() error {
	if s.db == nil {
		return nil
	}
	var err error
	if s.tx != nil {
		s.stmt.Close()
		err = s.tx.Commit()
		s.tx = nil
	}
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	s.db = nil
	if err != nil {
		removeSQLiteFiles(s.tmp)
		return err
	}
	// 旧库残留的 WAL 不能套用到新库上
	os.Remove(s.path + "-wal")
	os.Remove(s.path + "-shm")
	if err := os.Rename(s.tmp, s.path); err != nil {
		removeSQLiteFiles(s.tmp)
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}

// Abort 回滚事务并删除临时库，path 上已有的数据集不受影响。
func (s *SQLiteSink) Abort() error {
	if s.db == nil {
		return nil
	}
	if s.tx != nil {
		s.stmt.Close()
		s.tx.Rollback()
		s.tx = nil
	}
	err := s.db.Close()
	s.db = nil
	if rerr := removeSQLiteFiles(s.tmp); err == nil {
		err = rerr
	}
	return err
}
