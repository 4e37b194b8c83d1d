// Package store persists connected channels, the product catalog, and the
// delivered-message log in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"shopbot/internal/domain"
)

// Store implements domain.ChannelStore, domain.Catalog, and
// domain.MessageLog on a single SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	logger.Debug("store ready", "path", dbPath)
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS channels (
		id               TEXT PRIMARY KEY,
		owner_id         TEXT NOT NULL,
		token_ciphertext TEXT NOT NULL,
		created_at       DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS products (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		name     TEXT NOT NULL,
		price    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_products_owner ON products(owner_id);

	CREATE TABLE IF NOT EXISTS message_log (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		ts         DATETIME NOT NULL,
		owner_id   TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		sender_id  TEXT NOT NULL,
		text       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_message_log_ts ON message_log(ts);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

// --- domain.ChannelStore ---

// Get returns the connected channel or (nil, nil) when unknown.
func (s *Store) Get(ctx context.Context, channelID string) (*domain.Channel, error) {
	var ch domain.Channel
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, token_ciphertext, created_at FROM channels WHERE id = ?`, channelID,
	).Scan(&ch.ID, &ch.OwnerID, &ch.TokenCiphertext, &ch.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &ch, nil
}

// Put connects or reconnects a channel, replacing any stored credential.
func (s *Store) Put(ctx context.Context, ch domain.Channel) error {
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channels (id, owner_id, token_ciphertext, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET owner_id = excluded.owner_id, token_ciphertext = excluded.token_ciphertext`,
		ch.ID, ch.OwnerID, ch.TokenCiphertext, ch.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("put channel: %w", err)
	}
	return nil
}

// List returns all connected channels.
func (s *Store) List(ctx context.Context) ([]domain.Channel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, token_ciphertext, created_at FROM channels ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var out []domain.Channel
	for rows.Next() {
		var ch domain.Channel
		if err := rows.Scan(&ch.ID, &ch.OwnerID, &ch.TokenCiphertext, &ch.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// --- domain.Catalog ---

func (s *Store) Products(ctx context.Context, ownerID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, price FROM products WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.Name, &p.Price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplaceProducts swaps the owner's whole catalog in one transaction.
func (s *Store) ReplaceProducts(ctx context.Context, ownerID string, products []domain.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("clear products: %w", err)
	}
	for _, p := range products {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO products (owner_id, name, price) VALUES (?, ?, ?)`,
			ownerID, p.Name, p.Price,
		); err != nil {
			return fmt.Errorf("insert product %q: %w", p.Name, err)
		}
	}
	return tx.Commit()
}

// --- domain.MessageLog ---

func (s *Store) Append(ctx context.Context, e domain.LogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO message_log (ts, owner_id, channel_id, sender_id, text) VALUES (?, ?, ?, ?, ?)`,
		e.Timestamp, e.OwnerID, e.ChannelID, e.SenderID, e.Text,
	)
	if err != nil {
		return fmt.Errorf("append log entry: %w", err)
	}
	return nil
}

// RecentLog returns the most recent log entries, newest first.
func (s *Store) RecentLog(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, owner_id, channel_id, sender_id, text FROM message_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer rows.Close()

	var out []domain.LogEntry
	for rows.Next() {
		var e domain.LogEntry
		if err := rows.Scan(&e.Timestamp, &e.OwnerID, &e.ChannelID, &e.SenderID, &e.Text); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
