// Package badge issues the "Joulun Osaaja" digital badge through Open Badge
// Factory, either via the operator's proxy or directly with client credentials.
package badge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cristianadrielbraun/tonttukioski/internal/config"
	"github.com/cristianadrielbraun/tonttukioski/internal/metrics"
	"github.com/cristianadrielbraun/tonttukioski/internal/store"
)

// DefaultFailureMessage is shown when the upstream gave no usable text.
const DefaultFailureMessage = "Osaamismerkin lähetys epäonnistui"

var (
	ErrConfirmationRequired = errors.New("badge: confirmation required")
	ErrInvalidEmail         = errors.New("badge: email address is not valid")
	ErrNotConfigured        = errors.New("badge: issuance is not configured")
	ErrIssuanceFailed       = errors.New("badge: issuance failed")
)

// Request is the input of one issuance. BadgeID is filled in by Service
// from the operator settings.
type Request struct {
	Name      string
	Email     string
	RecordID  string
	BadgeID   string
	Confirmed bool
}

// Result is a successful issuance.
type Result struct {
	Success       bool
	CredentialURL string
	Message       string
	// Raw is the upstream response body, persisted with the session row.
	Raw json.RawMessage
}

// Issuer talks to one badge backend.
type Issuer interface {
	Issue(ctx context.Context, req Request) (Result, error)
}

// IssuanceError carries upstream diagnostics for a failed issuance.
type IssuanceError struct {
	Message string
	Status  int
	Err     error
}

func (e *IssuanceError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = DefaultFailureMessage
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IssuanceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrIssuanceFailed}
	}
	return []error{ErrIssuanceFailed, e.Err}
}

// Message returns text suitable for the participant.
func Message(err error) string {
	var ie *IssuanceError
	if errors.As(err, &ie) && strings.TrimSpace(ie.Message) != "" {
		return ie.Message
	}
	switch {
	case errors.Is(err, ErrConfirmationRequired):
		return "Vahvista ensin osaamismerkin lähetys."
	case errors.Is(err, ErrInvalidEmail):
		return "Sähköpostiosoite puuttuu tai on virheellinen."
	case errors.Is(err, ErrNotConfigured):
		return "Osaamismerkin asetukset puuttuvat. Pyydä henkilökuntaa tarkistamaan asetukset."
	}
	return DefaultFailureMessage
}

// SettingsStore is the subset of store.Store the Service needs.
type SettingsStore interface {
	LoadSettings(ctx context.Context, defaults store.Settings) (store.Settings, error)
	MarkBadgeIssued(ctx context.Context, id string, at time.Time, response json.RawMessage) error
}

// Options configures a Service.
type Options struct {
	Config     config.Badge
	Store      SettingsStore
	HTTPClient *http.Client
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Service applies the issuance preconditions and picks the backend.
type Service struct {
	store    SettingsStore
	defaults store.Settings
	direct   *OBFIssuer
	client   *http.Client
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(opts Options) *Service {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Service{
		store: opts.Store,
		defaults: store.Settings{
			BadgeID:  strings.TrimSpace(opts.Config.BadgeID),
			ProxyURL: strings.TrimSpace(opts.Config.ProxyURL),
		},
		client: client,
		logger: opts.Logger,
		now:    now,
	}
	if opts.Config.DirectOBF() {
		s.direct = NewOBFIssuer(OBFConfig{
			APIURL:       opts.Config.APIURL,
			ClientID:     opts.Config.ClientID,
			ClientSecret: opts.Config.ClientSecret,
			HTTPClient:   client,
			Now:          now,
		})
	}
	return s
}

// Settings returns the effective operator settings.
func (s *Service) Settings(ctx context.Context) (store.Settings, error) {
	if s.store == nil {
		return s.defaults, nil
	}
	return s.store.LoadSettings(ctx, s.defaults)
}

// Configured reports whether an issuance could be attempted right now.
func (s *Service) Configured(ctx context.Context) bool {
	_, err := s.issuer(ctx)
	return err == nil
}

// Issue checks confirmation, email and configuration before any network
// call, then issues the badge and marks the session row.
func (s *Service) Issue(ctx context.Context, req Request) (Result, error) {
	if !req.Confirmed {
		metrics.BadgeIssuanceTotal.WithLabelValues("unconfirmed").Inc()
		return Result{}, ErrConfirmationRequired
	}
	req.Email = strings.TrimSpace(req.Email)
	if !strings.Contains(req.Email, "@") {
		metrics.BadgeIssuanceTotal.WithLabelValues("invalid_email").Inc()
		return Result{}, ErrInvalidEmail
	}
	iss, badgeID, err := s.issuerFor(ctx)
	if err != nil {
		metrics.BadgeIssuanceTotal.WithLabelValues("not_configured").Inc()
		return Result{}, err
	}
	req.BadgeID = badgeID

	res, err := iss.Issue(ctx, req)
	if err != nil {
		metrics.BadgeIssuanceTotal.WithLabelValues("failure").Inc()
		s.logger.Warn().Err(err).Str("record_id", req.RecordID).Msg("badge issuance failed")
		var ie *IssuanceError
		if !errors.As(err, &ie) {
			err = &IssuanceError{Err: err}
		}
		return Result{}, err
	}
	metrics.BadgeIssuanceTotal.WithLabelValues("success").Inc()
	s.logger.Info().Str("record_id", req.RecordID).Msg("badge issued")

	if req.RecordID != "" && s.store != nil {
		if err := s.store.MarkBadgeIssued(ctx, req.RecordID, s.now(), res.Raw); err != nil {
			s.logger.Error().Err(err).Str("record_id", req.RecordID).Msg("mark badge issued")
		}
	}
	return res, nil
}

func (s *Service) issuer(ctx context.Context) (Issuer, error) {
	iss, _, err := s.issuerFor(ctx)
	return iss, err
}

func (s *Service) issuerFor(ctx context.Context) (Issuer, string, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("%w: load settings: %v", ErrNotConfigured, err)
	}
	badgeID := strings.TrimSpace(settings.BadgeID)
	if badgeID == "" {
		return nil, "", fmt.Errorf("%w: badge id missing", ErrNotConfigured)
	}
	if s.direct != nil {
		return s.direct, badgeID, nil
	}
	proxyURL := strings.TrimSpace(settings.ProxyURL)
	if proxyURL == "" {
		return nil, "", fmt.Errorf("%w: proxy url missing", ErrNotConfigured)
	}
	return NewProxyIssuer(proxyURL, s.client), badgeID, nil
}
