package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteSlotStore хранит слоты одним файлом SQLite (таблица slots)
type SQLiteSlotStore struct {
	db      *sql.DB
	path    string
	mutex   sync.RWMutex
	isReady bool
}

// NewSQLiteSlotStore открывает (или создает) базу по пути path
func NewSQLiteSlotStore(path string) (*SQLiteSlotStore, error) {
	if path == "" {
		return nil, fmt.Errorf("пустой путь к базе SQLite")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть SQLite: %w", err)
	}
	// Один писатель: SQLite сериализует запись на уровне файла
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS slots (
			name       TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ошибка инициализации SQLite: %w", err)
		}
	}

	return &SQLiteSlotStore{db: db, path: path, isReady: true}, nil
}

// Path возвращает путь к файлу базы
func (s *SQLiteSlotStore) Path() string {
	return s.path
}

// Close закрывает базу
func (s *SQLiteSlotStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}
	s.isReady = false
	return s.db.Close()
}

// Put сохраняет данные слота
func (s *SQLiteSlotStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ValidateSlotName(name); err != nil {
		return err
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrNotReady
	}
	if data == nil {
		data = []byte{}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO slots(name, data, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		name, data, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("ошибка сохранения слота %s в SQLite: %w", name, err)
	}
	return nil
}

// Get читает данные слота
func (s *SQLiteSlotStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, ErrNotReady
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM slots WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения слота %s из SQLite: %w", name, err)
	}
	return data, nil
}

// Delete удаляет слот
func (s *SQLiteSlotStore) Delete(ctx context.Context, name string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrNotReady
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("ошибка удаления слота %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// List перечисляет слоты в порядке имен
func (s *SQLiteSlotStore) List(ctx context.Context) ([]string, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, ErrNotReady
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM slots ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ошибка перечисления слотов: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetStorageStats возвращает статистику базы
func (s *SQLiteSlotStore) GetStorageStats() map[string]interface{} {
	stats := map[string]interface{}{"path": s.path}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return stats
	}

	var count, total int64
	row := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(LENGTH(data)), 0) FROM slots`)
	if err := row.Scan(&count, &total); err == nil {
		stats["stored_slots"] = count
		stats["total_bytes"] = total
	}
	return stats
}
