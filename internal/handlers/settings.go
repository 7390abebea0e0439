package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/tonttukioski/internal/certificate"
	"github.com/cristianadrielbraun/tonttukioski/internal/store"
	"github.com/cristianadrielbraun/tonttukioski/web/components"
	"github.com/cristianadrielbraun/tonttukioski/web/pages"
)

const adminTokenKey = "admin_token"

// RequireAdmin guards the settings page. The token may come from the
// X-Admin-Token header or a token parameter. Without a configured token the
// page is read-only.
func (h *Handler) RequireAdmin(c *gin.Context) {
	want := h.cfg.AdminToken
	if want == "" {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			h.logger.Warn().Str("client_ip", c.ClientIP()).Msg("settings change refused: no admin token configured")
			settings, _ := h.badges.Settings(c.Request.Context())
			view := h.settingsView(c, settings)
			view.Error = "Asetuksia voi muuttaa vain, kun KIOSK_ADMIN_TOKEN on asetettu."
			h.renderSettings(c, http.StatusForbidden, view)
			c.Abort()
			return
		}
		c.Next()
		return
	}
	got := c.GetHeader("X-Admin-Token")
	if got == "" {
		got = c.Query("token")
	}
	if got == "" {
		got = c.PostForm("token")
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(adminTokenKey, got)
	c.Next()
}

func (h *Handler) Settings(c *gin.Context) {
	settings, err := h.badges.Settings(c.Request.Context())
	view := h.settingsView(c, settings)
	if err != nil {
		_ = c.Error(err)
		view.Error = "Asetuksia ei voitu lukea."
	}
	h.renderSettings(c, http.StatusOK, view)
}

func (h *Handler) SaveSettings(c *gin.Context) {
	settings := store.Settings{
		BadgeID:  strings.TrimSpace(c.PostForm("badge_id")),
		ProxyURL: strings.TrimSpace(c.PostForm("proxy_url")),
	}
	view := h.settingsView(c, settings)

	if settings.ProxyURL != "" {
		normalized, err := certificate.NormalizeURL(settings.ProxyURL)
		if err != nil {
			view.Error = "Proxyn osoite ei kelpaa: " + err.Error()
			h.renderSettings(c, http.StatusUnprocessableEntity, view)
			return
		}
		settings.ProxyURL = normalized
		view.ProxyURL = normalized
	}

	if err := h.settings.SaveSettings(c.Request.Context(), settings); err != nil {
		_ = c.Error(err)
		h.logger.Error().Err(err).Msg("save settings")
		view.Error = "Asetusten tallennus epäonnistui."
		h.renderSettings(c, http.StatusInternalServerError, view)
		return
	}
	h.logger.Info().Str("badge_id", settings.BadgeID).Str("proxy_url", settings.ProxyURL).Msg("settings saved")
	view.Saved = true
	h.renderSettings(c, http.StatusOK, view)
}

func (h *Handler) settingsView(c *gin.Context, s store.Settings) components.SettingsView {
	return components.SettingsView{
		BadgeID:    s.BadgeID,
		ProxyURL:   s.ProxyURL,
		DirectOBF:  h.cfg.Badge.DirectOBF(),
		Configured: h.badges.Configured(c.Request.Context()),
		ReadOnly:   h.cfg.AdminToken == "",
		Token:      c.GetString(adminTokenKey),
	}
}

func (h *Handler) renderSettings(c *gin.Context, status int, view components.SettingsView) {
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := pages.SettingsPage(view).Render(c.Request.Context(), c.Writer); err != nil {
		h.logger.Error().Err(err).Msg("render settings")
	}
}
