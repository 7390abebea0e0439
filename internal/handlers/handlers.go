package handlers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cristianadrielbraun/tonttukioski/internal/badge"
	"github.com/cristianadrielbraun/tonttukioski/internal/config"
	"github.com/cristianadrielbraun/tonttukioski/internal/store"
)

// SettingsSaver persists operator settings.
type SettingsSaver interface {
	SaveSettings(ctx context.Context, s store.Settings) error
}

// Options wires the dependencies of the HTTP handlers.
type Options struct {
	Config   config.Config
	Sessions *Sessions
	Badges   *badge.Service
	Settings SettingsSaver
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Handler holds the dependencies shared by the HTTP handlers.
type Handler struct {
	cfg      config.Config
	sessions *Sessions
	badges   *badge.Service
	settings SettingsSaver
	logger   zerolog.Logger
	now      func() time.Time
}

// New returns a new Handler instance.
func New(opts Options) *Handler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		cfg:      opts.Config,
		sessions: opts.Sessions,
		badges:   opts.Badges,
		settings: opts.Settings,
		logger:   opts.Logger,
		now:      now,
	}
}
