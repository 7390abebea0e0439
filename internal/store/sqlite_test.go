package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kiosk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestCreateAndGetRecord(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created, err := st.CreateRecord(ctx, Record{Name: "Aino", Wish: "Lego"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := st.GetRecord(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aino", got.Name)
	assert.Equal(t, "Lego", got.Wish)
	assert.False(t, got.BadgeIssued)
	assert.Nil(t, got.OBFResponse)
}

func TestGetRecordMissing(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetRecord(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkBadgeIssued(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec, err := st.CreateRecord(ctx, Record{Name: "Eero", Email: "eero@example.test", Wish: "Sukset"})
	require.NoError(t, err)

	at := time.Date(2025, 12, 24, 10, 0, 0, 0, time.UTC)
	raw := json.RawMessage(`{"id":"obf-1"}`)
	require.NoError(t, st.MarkBadgeIssued(ctx, rec.ID, at, raw))

	got, err := st.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.BadgeIssued)
	assert.True(t, at.Equal(got.BadgeIssuedAt))
	assert.JSONEq(t, `{"id":"obf-1"}`, string(got.OBFResponse))

	require.ErrorIs(t, st.MarkBadgeIssued(ctx, "unknown", at, raw), ErrNotFound)
}

func TestSettingsRoundTripWithDefaults(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	defaults := Settings{ProxyURL: "https://proxy.example.test"}

	got, err := st.LoadSettings(ctx, defaults)
	require.NoError(t, err)
	assert.Equal(t, defaults, got)

	require.NoError(t, st.SaveSettings(ctx, Settings{BadgeID: " badge-42 ", ProxyURL: "https://other.example.test"}))

	got, err = st.LoadSettings(ctx, defaults)
	require.NoError(t, err)
	assert.Equal(t, Settings{BadgeID: "badge-42", ProxyURL: "https://other.example.test"}, got)
}
