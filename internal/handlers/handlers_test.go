package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristianadrielbraun/tonttukioski/internal/badge"
	"github.com/cristianadrielbraun/tonttukioski/internal/config"
	"github.com/cristianadrielbraun/tonttukioski/internal/log"
	"github.com/cristianadrielbraun/tonttukioski/internal/portrait"
	"github.com/cristianadrielbraun/tonttukioski/internal/store"
	"github.com/cristianadrielbraun/tonttukioski/internal/wizard"
)

type providerFunc func(ctx context.Context, req portrait.Request) (portrait.Result, error)

func (f providerFunc) Transform(ctx context.Context, req portrait.Request) (portrait.Result, error) {
	return f(ctx, req)
}

var okProvider = providerFunc(func(_ context.Context, req portrait.Request) (portrait.Result, error) {
	return portrait.Result{ImageURL: "https://cdn.example.test/elf.png", RecordID: "rec-1"}, nil
})

type testEnv struct {
	router *gin.Engine
	store  *store.SQLiteStore
	cookie *http.Cookie
}

func newEnv(t *testing.T, cfg config.Config, provider portrait.Provider) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "kiosk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	sessions, err := NewSessions(8, wizard.Options{Provider: provider, Logger: log.Nop()})
	require.NoError(t, err)
	t.Cleanup(sessions.Close)

	if cfg.PublicURL == "" {
		cfg.PublicURL = "https://joulunosaaja.fi"
	}
	h := New(Options{
		Config:   cfg,
		Sessions: sessions,
		Badges:   badge.NewService(badge.Options{Config: cfg.Badge, Store: st, Logger: log.Nop()}),
		Settings: st,
		Logger:   log.Nop(),
		Now:      func() time.Time { return time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC) },
	})
	r := gin.New()
	h.Routes(r)
	return &testEnv{router: r, store: st}
}

func (e *testEnv) do(t *testing.T, method, target string, form url.Values, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			e.cookie = c
		}
	}
	return rec
}

var htmx = map[string]string{"HX-Request": "true"}

func (e *testEnv) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	return e.do(t, http.MethodPost, path, form, htmx)
}

func stepOf(body string) string {
	const marker = `data-step="`
	i := strings.Index(body, marker)
	if i < 0 {
		return ""
	}
	rest := body[i+len(marker):]
	return rest[:strings.IndexByte(rest, '"')]
}

// toResult walks a fresh session to the result step.
func (e *testEnv) toResult(t *testing.T, email string) {
	t.Helper()
	e.post(t, "/wizard/start", nil)
	e.post(t, "/wizard/name", url.Values{"name": {"Aino"}, "email": {email}})
	e.post(t, "/wizard/wish", url.Values{"wish": {"Lego"}})
	rec := e.post(t, "/wizard/capture", url.Values{"image": {"data:image/jpeg;base64,/9j/4AAQ"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Eventually(t, func() bool {
		return stepOf(e.do(t, http.MethodGet, "/wizard/step", nil, htmx).Body.String()) == "result"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHomeStartsSession(t *testing.T) {
	env := newEnv(t, config.Config{}, okProvider)

	rec := env.do(t, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.cookie)
	assert.True(t, env.cookie.HttpOnly)
	body := rec.Body.String()
	assert.Contains(t, body, "<!doctype html>")
	assert.Equal(t, "welcome", stepOf(body))

	first := env.cookie.Value
	env.do(t, http.MethodGet, "/", nil, nil)
	assert.Equal(t, first, env.cookie.Value)
}

func TestWizardFlowToCertificate(t *testing.T) {
	env := newEnv(t, config.Config{}, okProvider)

	rec := env.post(t, "/wizard/start", nil)
	assert.Equal(t, "name", stepOf(rec.Body.String()))
	assert.NotContains(t, rec.Body.String(), "<!doctype html>", "htmx gets a fragment")
	assert.Contains(t, rec.Body.String(), `maxlength="120"`, "name input carries the validation limit")

	rec = env.post(t, "/wizard/name", url.Values{"name": {"A"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "name", stepOf(rec.Body.String()))
	assert.Contains(t, rec.Body.String(), "vähintään kaksi merkkiä")

	rec = env.post(t, "/wizard/name", url.Values{"name": {"Aino"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "wish", stepOf(rec.Body.String()))

	rec = env.post(t, "/wizard/wish", url.Values{"wish": {"Lego"}})
	assert.Equal(t, "camera", stepOf(rec.Body.String()))

	rec = env.post(t, "/wizard/capture", url.Values{"image": {"data:image/jpeg;base64,/9j/4AAQ"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cameraReleaseEvent, rec.Header().Get("HX-Trigger"))

	require.Eventually(t, func() bool {
		return stepOf(env.do(t, http.MethodGet, "/wizard/step", nil, htmx).Body.String()) == "result"
	}, 2*time.Second, 10*time.Millisecond)

	rec = env.post(t, "/wizard/certificate", nil)
	body := rec.Body.String()
	assert.Equal(t, "certificate", stepOf(body))
	assert.Contains(t, body, "19. lokakuuta 2026")
	assert.Contains(t, body, "Aino")
	assert.Contains(t, body, "/api/qr?size=240&amp;url="+url.QueryEscape("https://joulunosaaja.fi"))
	assert.Contains(t, body, "https://cdn.example.test/elf.png")

	rec = env.post(t, "/wizard/back", nil)
	assert.Equal(t, "result", stepOf(rec.Body.String()))
}

func TestTransformFailureShowsToast(t *testing.T) {
	failing := providerFunc(func(context.Context, portrait.Request) (portrait.Result, error) {
		return portrait.Result{}, portrait.Failed("quota exceeded", nil)
	})
	env := newEnv(t, config.Config{}, failing)

	env.post(t, "/wizard/start", nil)
	env.post(t, "/wizard/name", url.Values{"name": {"Aino"}})
	env.post(t, "/wizard/wish", url.Values{"wish": {"Lego"}})
	// the failure may already be visible in the capture response
	seen := env.post(t, "/wizard/capture", url.Values{"image": {"data:image/jpeg;base64,/9j/4AAQ"}}).Body.String()
	require.Eventually(t, func() bool {
		body := env.do(t, http.MethodGet, "/wizard/step", nil, htmx).Body.String()
		seen += body
		return stepOf(body) == "camera"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, seen, "quota exceeded")
	assert.Contains(t, seen, `hx-swap-oob="beforeend:#toasts"`)
}

func TestInvalidTransitionKeepsStep(t *testing.T) {
	env := newEnv(t, config.Config{}, okProvider)

	rec := env.post(t, "/wizard/certificate", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "welcome", stepOf(rec.Body.String()))
	assert.Contains(t, rec.Body.String(), `data-variant="warning"`)
}

func TestCameraErrorStaysOnCamera(t *testing.T) {
	env := newEnv(t, config.Config{}, okProvider)
	env.post(t, "/wizard/start", nil)
	env.post(t, "/wizard/name", url.Values{"name": {"Aino"}})
	env.post(t, "/wizard/wish", url.Values{"wish": {"Lego"}})

	rec := env.post(t, "/wizard/camera-error", url.Values{"reason": {"NotAllowedError"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "camera", stepOf(rec.Body.String()))
	assert.Contains(t, rec.Body.String(), "NotAllowedError")

	rec = env.post(t, "/wizard/back", nil)
	assert.Equal(t, "wish", stepOf(rec.Body.String()))
	assert.Equal(t, cameraReleaseEvent, rec.Header().Get("HX-Trigger"))
}

func TestRetakeRendersLiveCamera(t *testing.T) {
	env := newEnv(t, config.Config{}, okProvider)
	env.post(t, "/wizard/start", nil)
	env.post(t, "/wizard/name", url.Values{"name": {"Aino"}})
	env.post(t, "/wizard/wish", url.Values{"wish": {"Lego"}})

	rec := env.post(t, "/wizard/retake", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, "camera", stepOf(body))
	assert.Contains(t, body, "data-camera")
	assert.Contains(t, body, "<video", "a fresh preview element for the restarted stream")
	assert.Contains(t, body, `data-action="snap"`)
	assert.Contains(t, body, `hx-post="/wizard/retake"`)
}

func TestRestartResetsSession(t *testing.T) {
	env := newEnv(t, config.Config{}, okProvider)
	env.toResult(t, "")

	rec := env.post(t, "/wizard/restart", nil)
	assert.Equal(t, "welcome", stepOf(rec.Body.String()))
	rec = env.post(t, "/wizard/start", nil)
	assert.NotContains(t, rec.Body.String(), `value="Aino"`)
}

func TestBadgeHiddenWithoutEmail(t *testing.T) {
	env := newEnv(t, config.Config{Badge: config.Badge{BadgeID: "b", ProxyURL: "https://proxy.example.test"}}, okProvider)
	env.toResult(t, "")

	body := env.do(t, http.MethodGet, "/wizard/step", nil, htmx).Body.String()
	assert.NotContains(t, body, `hx-post="/api/badge"`)

	rec := env.post(t, "/api/badge", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIssueBadgeThroughProxy(t *testing.T) {
	var hits atomic.Int32
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "aino@example.test", body["recipient_email"])
		assert.Equal(t, "rec-1", body["record_id"])
		_, _ = io.WriteString(w, `{"success":true,"credential_url":"https://obf.example.test/c/7"}`)
	}))
	defer proxy.Close()

	env := newEnv(t, config.Config{Badge: config.Badge{BadgeID: "badge-1", ProxyURL: proxy.URL}}, okProvider)
	env.toResult(t, "aino@example.test")

	body := env.do(t, http.MethodGet, "/wizard/step", nil, htmx).Body.String()
	assert.Contains(t, body, `hx-post="/api/badge"`)
	assert.Contains(t, body, "aino@example.test?")

	rec := env.post(t, "/api/badge", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "confirmation required")
	assert.Zero(t, hits.Load())

	rec = env.post(t, "/api/badge", url.Values{"confirm": {"yes"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, hits.Load())
	assert.Contains(t, rec.Body.String(), "Osaamismerkki lähetetty")
	assert.NotContains(t, rec.Body.String(), `hx-post="/api/badge"`)

	rec = env.post(t, "/wizard/certificate", nil)
	assert.Contains(t, rec.Body.String(), url.QueryEscape("https://obf.example.test/c/7"), "QR links the credential")
}

func TestIssueBadgeNotConfigured(t *testing.T) {
	env := newEnv(t, config.Config{}, okProvider)
	env.toResult(t, "aino@example.test")

	body := env.do(t, http.MethodGet, "/wizard/step", nil, htmx).Body.String()
	assert.Contains(t, body, `hx-post="/api/badge"`, "offered whenever the email is usable")

	rec := env.post(t, "/api/badge", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "asetukset puuttuvat")
}

func TestBadgeImageFallsBackToBundled(t *testing.T) {
	env := newEnv(t, config.Config{}, okProvider)
	rec := env.do(t, http.MethodGet, "/api/badge-image", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))
}

func TestQRCodeHandler(t *testing.T) {
	env := newEnv(t, config.Config{}, okProvider)

	rec := env.do(t, http.MethodGet, "/api/qr", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/qr?url="+url.QueryEscape("ftp://example.test"), nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/qr?size=120&url="+url.QueryEscape("joulunosaaja.fi"), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestSettingsRequireToken(t *testing.T) {
	env := newEnv(t, config.Config{AdminToken: "s3cret"}, okProvider)

	rec := env.do(t, http.MethodGet, "/admin/settings", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/settings?token=s3cret", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/admin/settings", url.Values{
		"token":     {"s3cret"},
		"badge_id":  {" badge-42 "},
		"proxy_url": {"proxy.example.test/issue"},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Asetukset tallennettu")

	saved, err := env.store.LoadSettings(context.Background(), store.Settings{})
	require.NoError(t, err)
	assert.Equal(t, store.Settings{BadgeID: "badge-42", ProxyURL: "https://proxy.example.test/issue"}, saved)

	rec = env.do(t, http.MethodPost, "/admin/settings", url.Values{
		"token":     {"s3cret"},
		"proxy_url": {"ftp://nope"},
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSettingsReadOnlyWithoutToken(t *testing.T) {
	env := newEnv(t, config.Config{}, okProvider)

	rec := env.do(t, http.MethodGet, "/admin/settings", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `method="post"`)
	assert.Contains(t, rec.Body.String(), `data-configured="false"`)

	rec = env.do(t, http.MethodPost, "/admin/settings", url.Values{
		"badge_id":  {"badge-42"},
		"proxy_url": {"https://evil.example.test"},
	}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "KIOSK_ADMIN_TOKEN")

	saved, err := env.store.LoadSettings(context.Background(), store.Settings{})
	require.NoError(t, err)
	assert.Empty(t, saved.ProxyURL)
}

func TestHealthAndToast(t *testing.T) {
	env := newEnv(t, config.Config{}, okProvider)

	rec := env.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = env.do(t, http.MethodPost, "/api/htmx/toast", url.Values{
		"title": {"Hei"}, "description": {"<b>x</b>"}, "variant": {"destructive"},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-variant="error"`)
	assert.Contains(t, body, "&lt;b&gt;x&lt;/b&gt;")
}
