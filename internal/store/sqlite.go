package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	settingBadgeID  = "badge_id"
	settingProxyURL = "proxy_url"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(filePath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	st := &SQLiteStore{db: db}
	if err := st.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS elf_badges (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			wish TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			badge_issued INTEGER NOT NULL DEFAULT 0,
			badge_issued_at TEXT NOT NULL DEFAULT '',
			obf_response TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// CreateRecord inserts a session row, assigning an id and creation time when
// they are missing.
func (s *SQLiteStore) CreateRecord(ctx context.Context, rec Record) (Record, error) {
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO elf_badges (id, name, email, wish, image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Name,
		rec.Email,
		rec.Wish,
		rec.ImageURL,
		toTS(rec.CreatedAt),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, wish, image_url, created_at, badge_issued, badge_issued_at, obf_response
		FROM elf_badges
		WHERE id = ?`,
		id,
	)
	var (
		rec       Record
		createdAt string
		issued    int
		issuedAt  string
		response  string
	)
	err := row.Scan(&rec.ID, &rec.Name, &rec.Email, &rec.Wish, &rec.ImageURL, &createdAt, &issued, &issuedAt, &response)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get record: %w", err)
	}
	rec.CreatedAt = fromTS(createdAt)
	rec.BadgeIssued = issued != 0
	rec.BadgeIssuedAt = fromTS(issuedAt)
	if response != "" {
		rec.OBFResponse = json.RawMessage(response)
	}
	return rec, nil
}

// MarkBadgeIssued flags the row as issued and keeps the raw platform response.
func (s *SQLiteStore) MarkBadgeIssued(ctx context.Context, id string, at time.Time, response json.RawMessage) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE elf_badges
		SET badge_issued = 1, badge_issued_at = ?, obf_response = ?
		WHERE id = ?`,
		toTS(at),
		string(response),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark badge issued: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark badge issued: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadSettings returns the stored settings, falling back to defaults for
// keys that were never saved.
func (s *SQLiteStore) LoadSettings(ctx context.Context, defaults Settings) (Settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	out := defaults
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, fmt.Errorf("load settings: %w", err)
		}
		switch key {
		case settingBadgeID:
			out.BadgeID = value
		case settingProxyURL:
			out.ProxyURL = value
		}
	}
	if err := rows.Err(); err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, settings Settings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	values := map[string]string{
		settingBadgeID:  strings.TrimSpace(settings.BadgeID),
		settingProxyURL: strings.TrimSpace(settings.ProxyURL),
	}
	for key, value := range values {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}
	return tx.Commit()
}

func toTS(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func fromTS(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
