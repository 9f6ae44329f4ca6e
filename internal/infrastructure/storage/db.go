package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

// schema 会话、对话记录与已索引文档登记表
const schema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_sessions_updated ON chat_sessions(updated_at);

CREATE TABLE IF NOT EXISTS chat_turns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	citations TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_turns_session ON chat_turns(session_id, id);

CREATE TABLE IF NOT EXISTS documents (
	file_name TEXT PRIMARY KEY,
	file_path TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	page_count INTEGER NOT NULL,
	chunk_count INTEGER NOT NULL,
	indexed_at INTEGER NOT NULL
);`

// OpenDB 打开数据库连接并初始化表结构
func OpenDB(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// 单进程单写者
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitSchema 创建表结构
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ProvideDB 为依赖注入提供数据库连接
func ProvideDB(cfg *config.Config) (*sql.DB, func(), error) {
	path := cfg.HistoryDBPath()
	db, err := OpenDB(path)
	if err != nil {
		return nil, nil, err
	}

	log.NewModuleLogger("storage", "db").Debug("Database opened", "path", path)

	cleanup := func() {
		_ = db.Close()
	}
	return db, cleanup, nil
}
