package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/tonttukioski/internal/certificate"
	"github.com/cristianadrielbraun/tonttukioski/internal/wizard"
	"github.com/cristianadrielbraun/tonttukioski/web/components"
	"github.com/cristianadrielbraun/tonttukioski/web/pages"
)

// cameraReleaseEvent is triggered in the browser whenever the session left
// the camera step.
const cameraReleaseEvent = "camera-release"

func (h *Handler) Home(c *gin.Context) {
	h.render(c, h.sessions.Get(c), http.StatusOK, nil)
}

// CurrentStep renders the current step; the transform screen polls it.
func (h *Handler) CurrentStep(c *gin.Context) {
	h.render(c, h.sessions.Get(c), http.StatusOK, nil)
}

func (h *Handler) Start(c *gin.Context)    { h.dispatch(c, wizard.Start{}) }
func (h *Handler) Info(c *gin.Context)     { h.dispatch(c, wizard.ShowInfo{}) }
func (h *Handler) Back(c *gin.Context)     { h.dispatch(c, wizard.Back{}) }
func (h *Handler) Retake(c *gin.Context)   { h.dispatch(c, wizard.Retake{}) }
func (h *Handler) Restart(c *gin.Context)  { h.dispatch(c, wizard.Restart{}) }
func (h *Handler) ShowCert(c *gin.Context) { h.dispatch(c, wizard.ViewCertificate{}) }

func (h *Handler) SubmitName(c *gin.Context) {
	h.dispatch(c, wizard.SubmitName{Name: c.PostForm("name"), Email: c.PostForm("email")})
}

func (h *Handler) SubmitWish(c *gin.Context) {
	h.dispatch(c, wizard.SubmitWish{Wish: c.PostForm("wish"), BadgeImage: c.PostForm("badge_image")})
}

func (h *Handler) Capture(c *gin.Context) {
	h.dispatch(c, wizard.Capture{Image: c.PostForm("image")})
}

func (h *Handler) CameraError(c *gin.Context) {
	h.dispatch(c, wizard.CameraFailed{Reason: c.PostForm("reason")})
}

func (h *Handler) dispatch(c *gin.Context, ev wizard.Event) {
	sess := h.sessions.Get(c)
	err := sess.Machine.Dispatch(ev)

	var verr *wizard.ValidationError
	switch {
	case err == nil:
		h.render(c, sess, http.StatusOK, nil)
	case errors.As(err, &verr):
		h.render(c, sess, http.StatusUnprocessableEntity, verr)
	case errors.Is(err, wizard.ErrInvalidTransition):
		h.logger.Debug().Err(err).Str("session", sess.ID).Msg("rejected wizard event")
		sess.Machine.Notify(wizard.VariantWarning, "Ei käytettävissä", "Tätä toimintoa ei voi tehdä tässä vaiheessa.")
		h.render(c, sess, http.StatusConflict, nil)
	default:
		_ = c.Error(err)
		h.logger.Error().Err(err).Str("session", sess.ID).Msg("wizard event failed")
		h.render(c, sess, http.StatusInternalServerError, nil)
	}
}

// render answers with the current step: a stage fragment plus out-of-band
// toasts for HTMX requests, the full page otherwise.
func (h *Handler) render(c *gin.Context, sess *Session, status int, verr *wizard.ValidationError) {
	snap := sess.Machine.Snapshot()
	view := h.stepView(snap)
	if verr != nil {
		view.Error = verr.Reason
		view.ErrorField = verr.Field
	}
	if sess.takeRelease() {
		c.Header("HX-Trigger", cameraReleaseEvent)
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)

	htmx := c.GetHeader("HX-Request") == "true"
	var err error
	if htmx {
		err = pages.Stage(view).Render(c.Request.Context(), c.Writer)
	} else {
		err = pages.HomePage(view).Render(c.Request.Context(), c.Writer)
	}
	if err == nil {
		err = renderNotifications(c, sess.Machine.Notifications(), htmx)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("render step")
	}
}

func (h *Handler) stepView(snap wizard.Snapshot) components.StepView {
	rec := snap.Record
	view := components.StepView{
		Step:          string(snap.Step),
		Name:          rec.Name,
		NameMax:       wizard.MaxNameRunes,
		Email:         rec.Email,
		Wish:          rec.Wish,
		WishMax:       wizard.MaxWishRunes,
		HasBadgeImage: rec.BadgeImage != "",
		CapturedImage: rec.CapturedImage,
		ElfImageURL:   rec.ElfImageURL,
		BadgeIssued:   rec.BadgeIssued,
		CredentialURL: rec.CredentialURL,
	}
	if snap.Step == wizard.StepResult || snap.Step == wizard.StepCertificate {
		view.BadgeAvailable = snap.BadgeAvailable()
		view.BadgeImageURL = "/api/badge-image"
		target := certificate.QRTarget(rec.CredentialURL, h.cfg.PublicURL)
		view.QRImageURL = "/api/qr?size=240&url=" + url.QueryEscape(target)
		view.IssuedOn = certificate.FormatDate(h.now())
	}
	return view
}
