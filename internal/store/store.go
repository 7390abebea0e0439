// Package store persists kiosk session rows and operator settings.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a record id is unknown.
var ErrNotFound = errors.New("store: record not found")

// Record is the persisted session row. Badge fields are written only after
// a successful issuance.
type Record struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email,omitempty"`
	Wish          string          `json:"wish"`
	ImageURL      string          `json:"image_url,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	BadgeIssued   bool            `json:"badge_issued"`
	BadgeIssuedAt time.Time       `json:"badge_issued_at,omitempty"`
	OBFResponse   json.RawMessage `json:"obf_response,omitempty"`
}

// Settings are the operator-editable badge settings.
type Settings struct {
	BadgeID  string `json:"badge_id"`
	ProxyURL string `json:"proxy_url"`
}

// Store is implemented by SQLiteStore.
type Store interface {
	CreateRecord(ctx context.Context, rec Record) (Record, error)
	GetRecord(ctx context.Context, id string) (Record, error)
	MarkBadgeIssued(ctx context.Context, id string, at time.Time, response json.RawMessage) error
	LoadSettings(ctx context.Context, defaults Settings) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
	Close() error
}
