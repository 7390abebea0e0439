package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/tonttukioski/internal/badge"
	"github.com/cristianadrielbraun/tonttukioski/internal/certificate"
	"github.com/cristianadrielbraun/tonttukioski/internal/wizard"
)

// IssueBadge sends the badge to the session's email. The form must carry
// confirm=yes.
func (h *Handler) IssueBadge(c *gin.Context) {
	sess := h.sessions.Get(c)
	target, err := sess.Machine.BadgeTarget()
	if err != nil {
		sess.Machine.Notify(wizard.VariantError, "Virhe", "Osaamismerkkiä ei voi lähettää ilman sähköpostiosoitetta.")
		h.render(c, sess, http.StatusConflict, nil)
		return
	}

	res, err := h.badges.Issue(c.Request.Context(), badge.Request{
		Name:      target.Name,
		Email:     target.Email,
		RecordID:  target.RecordID,
		Confirmed: c.PostForm("confirm") == "yes",
	})
	if err != nil {
		_ = c.Error(err)
		sess.Machine.Notify(wizard.VariantError, "Virhe", badge.Message(err))
		h.render(c, sess, badgeStatus(err), nil)
		return
	}

	if err := sess.Machine.Dispatch(wizard.BadgeIssued{CredentialURL: res.CredentialURL}); err != nil {
		// The session moved on while the request was in flight; the badge was still sent.
		h.logger.Warn().Err(err).Str("session", sess.ID).Msg("record badge issuance")
	}
	h.render(c, sess, http.StatusOK, nil)
}

func badgeStatus(err error) int {
	switch {
	case errors.Is(err, badge.ErrConfirmationRequired), errors.Is(err, badge.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.Is(err, badge.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, badge.ErrIssuanceFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// BadgeImage serves the certificate badge of the session as PNG.
func (h *Handler) BadgeImage(c *gin.Context) {
	sess := h.sessions.Get(c)
	data, err := certificate.BadgePNG(sess.Machine.Snapshot().Record.BadgeImage)
	if err != nil {
		h.logger.Warn().Err(err).Str("session", sess.ID).Msg("badge image unusable, using bundled badge")
		data, err = certificate.BadgePNG("")
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render badge"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", data)
}
