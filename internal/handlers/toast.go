package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/tonttukioski/internal/wizard"
	"github.com/cristianadrielbraun/tonttukioski/web/components/ui/toast"
)

const toastDuration = 4000

func toastVariant(variant string) toast.Variant {
	switch variant {
	case "error", "destructive":
		return toast.VariantError
	case "warning":
		return toast.VariantWarning
	case "info":
		return toast.VariantInfo
	default:
		return toast.VariantSuccess
	}
}

// GenericToast returns a Toast component rendered as HTML for HTMX swaps.
func (h *Handler) GenericToast(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)

	_ = toast.Toast(toast.Props{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Variant:     toastVariant(c.PostForm("variant")),
		Position:    toast.PositionBottomRight,
		Duration:    2000,
		Dismissible: c.PostForm("dismissible") == "on",
		Icon:        true,
	}).Render(c.Request.Context(), c.Writer)
}

// renderNotifications writes the session's queued notifications. HTMX
// fragments carry them as out-of-band swaps into the toast container.
func renderNotifications(c *gin.Context, notes []wizard.Notification, oob bool) error {
	for _, n := range notes {
		err := toast.Toast(toast.Props{
			Title:         n.Title,
			Description:   n.Description,
			Variant:       toastVariant(string(n.Variant)),
			Position:      toast.PositionBottomCenter,
			Duration:      toastDuration,
			Dismissible:   true,
			ShowIndicator: true,
			Icon:          true,
			OOB:           oob,
		}).Render(c.Request.Context(), c.Writer)
		if err != nil {
			return err
		}
	}
	return nil
}
