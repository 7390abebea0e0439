package badge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxResponseBytes = 1 << 20

// ProxyIssuer posts issuance requests to the operator's OBF proxy.
type ProxyIssuer struct {
	url    string
	client *http.Client
}

type proxyRequest struct {
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name"`
	BadgeID        string `json:"badge_id"`
	RecordID       string `json:"record_id,omitempty"`
}

type proxyResponse struct {
	Success       bool   `json:"success"`
	CredentialURL string `json:"credential_url,omitempty"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

func NewProxyIssuer(url string, client *http.Client) *ProxyIssuer {
	if client == nil {
		client = http.DefaultClient
	}
	return &ProxyIssuer{url: strings.TrimSpace(url), client: client}
}

func (p *ProxyIssuer) Issue(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(proxyRequest{
		RecipientEmail: req.Email,
		RecipientName:  req.Name,
		BadgeID:        req.BadgeID,
		RecordID:       req.RecordID,
	})
	if err != nil {
		return Result{}, &IssuanceError{Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, &IssuanceError{Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Result{}, &IssuanceError{Err: fmt.Errorf("call proxy: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, &IssuanceError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	var decoded proxyResponse
	decodeErr := json.Unmarshal(raw, &decoded)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || decodeErr != nil || !decoded.Success {
		ie := &IssuanceError{Status: resp.StatusCode}
		if decodeErr == nil {
			ie.Message = firstNonEmpty(decoded.Message, decoded.Error)
		} else {
			ie.Err = fmt.Errorf("decode response: %w", decodeErr)
		}
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			ie.Status = 0
		}
		return Result{}, ie
	}
	return Result{
		Success:       true,
		CredentialURL: decoded.CredentialURL,
		Message:       decoded.Message,
		Raw:           json.RawMessage(raw),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
