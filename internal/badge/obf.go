package badge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	obfEmailSubject  = "Onneksi olkoon! Olet ansainnut Joulun Osaaja -osaamismerkin!"
	obfEmailLinkText = "Näytä osaamismerkki"
	obfSuccessText   = "Osaamismerkki lähetetty sähköpostiisi!"
)

// OBFConfig configures direct calls to the Open Badge Factory API.
type OBFConfig struct {
	APIURL       string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	Now          func() time.Time
}

// OBFIssuer issues badges directly against Open Badge Factory using the
// client-credentials grant.
type OBFIssuer struct {
	apiURL      string
	clientID    string
	client      *http.Client
	credentials clientcredentials.Config
	now         func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
}

type obfIssueRequest struct {
	Recipient     []string `json:"recipient"`
	IssuedOn      int64    `json:"issued_on"`
	EmailSubject  string   `json:"email_subject"`
	EmailBody     string   `json:"email_body"`
	EmailLinkText string   `json:"email_link_text"`
}

func NewOBFIssuer(cfg OBFConfig) *OBFIssuer {
	apiURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if apiURL == "" {
		apiURL = "https://openbadgefactory.com"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     apiURL + "/v1/client/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return &OBFIssuer{
		apiURL:      apiURL,
		clientID:    cfg.ClientID,
		client:      client,
		credentials: cc,
		now:         now,
	}
}

// accessToken returns the cached token while it is valid and fetches a new
// one bound to ctx otherwise.
func (o *OBFIssuer) accessToken(ctx context.Context) (*oauth2.Token, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.token.Valid() {
		return o.token, nil
	}
	tok, err := o.credentials.Token(context.WithValue(ctx, oauth2.HTTPClient, o.client))
	if err != nil {
		return nil, err
	}
	o.token = tok
	return tok, nil
}

func (o *OBFIssuer) Issue(ctx context.Context, req Request) (Result, error) {
	tok, err := o.accessToken(ctx)
	if err != nil {
		return Result{}, &IssuanceError{Err: fmt.Errorf("obf token: %w", err)}
	}

	body, err := json.Marshal(obfIssueRequest{
		Recipient:     []string{req.Email},
		IssuedOn:      o.now().Unix(),
		EmailSubject:  obfEmailSubject,
		EmailBody:     obfEmailBody(req.Name),
		EmailLinkText: obfEmailLinkText,
	})
	if err != nil {
		return Result{}, &IssuanceError{Err: fmt.Errorf("encode request: %w", err)}
	}

	endpoint := fmt.Sprintf("%s/v1/%s/badge/%s/issue", o.apiURL, url.PathEscape(o.clientID), url.PathEscape(req.BadgeID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, &IssuanceError{Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(httpReq)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return Result{}, &IssuanceError{Err: fmt.Errorf("call obf: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, &IssuanceError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &IssuanceError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("obf badge issue failed: %s", strings.TrimSpace(string(raw))),
		}
	}

	res := Result{Success: true, Message: obfSuccessText}
	// OBF answers with an empty body or a JSON document; only the latter is kept.
	if json.Valid(raw) {
		res.Raw = json.RawMessage(raw)
	}
	return res, nil
}

func obfEmailBody(name string) string {
	return "Hei " + name + "!\n\n" +
		"Olet suorittanut Joulun Osaaja -tehtävän ja ansainnut digitaalisen osaamismerkin.\n\n" +
		"Osaamismerkki todistaa rohkeutesi kokeilla uutta teknologiaa ja tutustua tekoälyn mahdollisuuksiin.\n\n" +
		"Onnea ja iloista joulunaikaa!\n\n" +
		"Lapland AI Lab"
}
