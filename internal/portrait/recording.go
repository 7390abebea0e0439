package portrait

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/cristianadrielbraun/tonttukioski/internal/dataurl"
	"github.com/cristianadrielbraun/tonttukioski/internal/store"
)

// Recorder persists a session row for a finished portrait.
type Recorder interface {
	CreateRecord(ctx context.Context, rec store.Record) (store.Record, error)
}

// Recording stores a session row for portraits whose provider did not
// return a record id. A storage failure leaves the portrait usable without an id.
type Recording struct {
	next   Provider
	rec    Recorder
	logger zerolog.Logger
}

func NewRecording(next Provider, rec Recorder, logger zerolog.Logger) *Recording {
	return &Recording{next: next, rec: rec, logger: logger}
}

func (r *Recording) Transform(ctx context.Context, req Request) (Result, error) {
	res, err := r.next.Transform(ctx, req)
	if err != nil || res.RecordID != "" {
		return res, err
	}
	row := store.Record{Name: req.Name, Email: req.Email, Wish: req.Wish}
	if !dataurl.IsDataURL(res.ImageURL) {
		row.ImageURL = res.ImageURL
	}
	saved, err := r.rec.CreateRecord(ctx, row)
	if err != nil {
		r.logger.Warn().Err(err).Msg("record portrait")
		return res, nil
	}
	res.RecordID = saved.ID
	return res, nil
}
