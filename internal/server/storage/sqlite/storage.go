package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// startupPragmas выполняются при открытии базы.
// WAL нужен, чтобы чтения документов (join, list) не блокировались
// записями synchronizer'а; busy_timeout страхует от SQLITE_BUSY
// при конкурентном доступе из тестов.
var startupPragmas = []string{
	"PRAGMA journal_mode = WAL;",
	"PRAGMA synchronous = NORMAL;",
	"PRAGMA foreign_keys = ON;",
	"PRAGMA busy_timeout = 5000;",
}

// Storage реализует storage.DocumentStorage поверх SQLite.
// Основное хранилище документов: один процесс, один файл базы.
type Storage struct {
	db *sql.DB
}

// New открывает базу документов по пути dbPath и накатывает миграции.
// Для тестов используется ":memory:".
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite допускает только одного писателя; пул из одного
	// соединения сериализует доступ и заодно не дает ":memory:"
	// базе расщепиться на несколько независимых копий
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, pragma := range startupPragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Storage{db: db}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close закрывает соединение с базой
func (s *Storage) Close() error {
	return s.db.Close()
}

// migrate накатывает embedded миграции через goose
func (s *Storage) migrate() error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	return nil
}

// DB возвращает низкоуровневое соединение для прямых запросов в тестах
func (s *Storage) DB() *sql.DB {
	return s.db
}
