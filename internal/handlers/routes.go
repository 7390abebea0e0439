package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxCaptureBytes = 16 << 20
	maxWishBytes    = 4 << 20
)

// Routes registers the kiosk endpoints. apiMiddleware runs on /api only.
func (h *Handler) Routes(r *gin.Engine, apiMiddleware ...gin.HandlerFunc) {
	r.GET("/", h.Home)
	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	w := r.Group("/wizard")
	{
		w.GET("/step", h.CurrentStep)
		w.POST("/start", h.Start)
		w.POST("/info", h.Info)
		w.POST("/back", h.Back)
		w.POST("/name", h.SubmitName)
		w.POST("/wish", limitBody(maxWishBytes), h.SubmitWish)
		w.POST("/capture", limitBody(maxCaptureBytes), h.Capture)
		w.POST("/retake", h.Retake)
		w.POST("/camera-error", h.CameraError)
		w.POST("/certificate", h.ShowCert)
		w.POST("/restart", h.Restart)
	}

	api := r.Group("/api", apiMiddleware...)
	{
		api.POST("/badge", h.IssueBadge)
		api.GET("/badge-image", h.BadgeImage)
		api.GET("/qr", h.QRCodeHandler)
		api.POST("/htmx/toast", h.GenericToast)
	}

	admin := r.Group("/admin", h.RequireAdmin)
	{
		admin.GET("/settings", h.Settings)
		admin.POST("/settings", h.SaveSettings)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.sessions.Len()})
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
