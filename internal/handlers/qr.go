package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/tonttukioski/internal/certificate"
)

// QRCodeHandler renders a PNG QR code for an http(s) URL.
func (h *Handler) QRCodeHandler(c *gin.Context) {
	rawURL := strings.TrimSpace(c.Query("url"))
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL parameter is required"})
		return
	}
	normalizedURL, err := certificate.NormalizeURL(rawURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := certificate.DefaultQROptions()
	opts.Size = parseQRSize(c.DefaultQuery("size", "preview"))
	opts.FG = certificate.ParseColor(c.Query("fg"), opts.FG)
	opts.BG = certificate.ParseColor(c.Query("bg"), opts.BG)
	opts.Shape = c.DefaultQuery("qrShape", "rectangle")

	data, err := certificate.QRCode(normalizedURL, opts)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate QR code"})
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", data)
}

// parseQRSize accepts "preview", "download" or a pixel count.
func parseQRSize(size string) int {
	switch size {
	case "", "preview":
		return certificate.DefaultQRSize
	case "download":
		return certificate.MaxQRSize
	}
	n, err := strconv.Atoi(size)
	if err != nil {
		return certificate.DefaultQRSize
	}
	return n
}

