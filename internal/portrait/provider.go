// Package portrait turns a captured kiosk photo into an elf portrait, either
// through the remote elf-image function or by compositing locally.
package portrait

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cristianadrielbraun/tonttukioski/internal/config"
)

// DefaultFailureMessage is shown when a failure carries no better text.
const DefaultFailureMessage = "AI-muunnos epäonnistui. Yritä uudelleen."

var (
	// ErrTransformationFailed matches every error returned by a Provider.
	ErrTransformationFailed = errors.New("transformation failed")
	// ErrImageDecode marks a captured image that could not be decoded.
	ErrImageDecode = errors.New("image decode failed")
)

// Strategy names the provider implementation for logs and metrics.
type Strategy string

const (
	StrategyRemote Strategy = "remote"
	StrategyLocal  Strategy = "local"
)

// Request is the input of one transformation.
type Request struct {
	Image string // data URL or bare base64
	Wish  string
	Name  string
	Email string
}

// Result is the produced portrait. ImageURL is either a remote URL or a data URL.
type Result struct {
	ImageURL string
	RecordID string
}

// Provider produces an elf portrait from a captured photo.
type Provider interface {
	Transform(ctx context.Context, req Request) (Result, error)
}

// FailedError carries the human-readable text shown to the participant.
type FailedError struct {
	Message string
	Err     error
}

func (e *FailedError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *FailedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransformationFailed}
	}
	return []error{ErrTransformationFailed, e.Err}
}

// Failed builds a transformation failure. An empty message falls back to
// DefaultFailureMessage.
func Failed(message string, cause error) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = DefaultFailureMessage
	}
	return &FailedError{Message: message, Err: cause}
}

// Message extracts the participant-facing text of err.
func Message(err error) string {
	var failed *FailedError
	if errors.As(err, &failed) && failed.Message != "" {
		return failed.Message
	}
	return DefaultFailureMessage
}

// New selects the provider for the configured transform settings. Without a
// function URL the local compositor is used, and its portraits are recorded
// through rec so badge issuance can correlate them.
func New(cfg config.Transform, rec Recorder, logger zerolog.Logger) Provider {
	if cfg.UseRemoteTransform() {
		remote := NewRemoteProvider(RemoteConfig{
			URL:     cfg.URL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
			Rate:    cfg.Rate,
			Burst:   cfg.Burst,
		})
		return Instrument(remote, StrategyRemote, logger)
	}
	var p Provider = NewCompositor()
	if rec != nil {
		p = NewRecording(p, rec, logger)
	}
	return Instrument(p, StrategyLocal, logger)
}
