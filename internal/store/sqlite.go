package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/iabetor/newsroom/internal/logger"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLite 把每次写入保存为一条新修订，Get 返回最新修订。
type SQLite struct {
	db   *sql.DB
	path string
}

// Revision 是文档的一次历史写入。
type Revision struct {
	Revision  int       `json:"revision"`
	Message   string    `json:"message"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// OpenSQLite 打开或创建数据库文件并执行迁移。
func OpenSQLite(dbPath string) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	// 单连接串行化写入，避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 WAL 模式失败: %w", err)
	}

	version, err := migrateUp(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Infof("[store] 数据库已打开: %s (schema v%d)", dbPath, version)
	return &SQLite{db: db, path: dbPath}, nil
}

func migrateUp(db *sql.DB) (uint, error) {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("创建迁移驱动失败: %w", err)
	}
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("读取迁移文件失败: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("创建迁移实例失败: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("执行迁移失败: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("读取迁移版本失败: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("数据库迁移处于 dirty 状态 (v%d)", version)
	}
	return version, nil
}

// Path 返回数据库文件路径。
func (s *SQLite) Path() string {
	return s.path
}

// Close 关闭数据库。
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Get 实现 Store。
func (s *SQLite) Get(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM document_revisions WHERE path = ? ORDER BY revision DESC LIMIT 1`,
		path).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Put 实现 Store，追加一条修订。
func (s *SQLite) Put(ctx context.Context, path string, data []byte, message string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(revision), 0) FROM document_revisions WHERE path = ?`,
		path).Scan(&current); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO document_revisions (path, revision, body, message) VALUES (?, ?, ?, ?)`,
		path, current+1, data, message); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	logger.Debugf("[store] %s 修订 %d: %s", path, current+1, message)
	return nil
}

// History 返回文档的修订记录，最新的在前。
func (s *SQLite) History(ctx context.Context, path string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT revision, message, LENGTH(body), created_at FROM document_revisions
		 WHERE path = ? ORDER BY revision DESC`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var (
			r       Revision
			created string
		)
		if err := rows.Scan(&r.Revision, &r.Message, &r.Size, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTimestamp(created)
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

// parseTimestamp 兼容驱动返回的 RFC3339 与 SQLite 默认的 CURRENT_TIMESTAMP 格式。
func parseTimestamp(v string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
