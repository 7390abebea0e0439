package portrait

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const maxRemoteResponseBytes = 1 << 20

// RemoteConfig configures the elf-image function client.
type RemoteConfig struct {
	URL        string
	APIKey     string
	Timeout    time.Duration
	Rate       float64 // requests per second, <= 0 disables limiting
	Burst      int
	HTTPClient *http.Client
}

// RemoteProvider delegates the transformation to the elf-image function.
type RemoteProvider struct {
	url     string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

type remoteRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Wish        string `json:"wish"`
	ImageBase64 string `json:"image_base64"`
}

type remoteResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"image_url,omitempty"`
	ID       string `json:"id,omitempty"`
	Error    string `json:"error,omitempty"`
}

func NewRemoteProvider(cfg RemoteConfig) *RemoteProvider {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}
	return &RemoteProvider{
		url:     strings.TrimSpace(cfg.URL),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		client:  client,
		limiter: limiter,
	}
}

func (p *RemoteProvider) Transform(ctx context.Context, req Request) (Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return Result{}, Failed("Tekoälypalvelu on ruuhkautunut. Yritä hetken päästä uudelleen.", err)
	}

	body, err := json.Marshal(remoteRequest{
		Name:        req.Name,
		Email:       req.Email,
		Wish:        req.Wish,
		ImageBase64: req.Image,
	})
	if err != nil {
		return Result{}, Failed("", fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, Failed("", fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
		httpReq.Header.Set("apikey", p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Result{}, Failed("", fmt.Errorf("call elf-image: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponseBytes))
	if err != nil {
		return Result{}, Failed("", fmt.Errorf("read response: %w", err))
	}

	var decoded remoteResponse
	decodeErr := json.Unmarshal(raw, &decoded)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := ""
		if decodeErr == nil {
			msg = decoded.Error
		}
		return Result{}, Failed(msg, fmt.Errorf("elf-image returned HTTP %d", resp.StatusCode))
	}
	if decodeErr != nil {
		return Result{}, Failed("", fmt.Errorf("decode response: %w", decodeErr))
	}
	if !decoded.Success {
		return Result{}, Failed(decoded.Error, nil)
	}
	if strings.TrimSpace(decoded.ImageURL) == "" {
		return Result{}, Failed("", errors.New("elf-image returned no image url"))
	}
	return Result{ImageURL: decoded.ImageURL, RecordID: decoded.ID}, nil
}
