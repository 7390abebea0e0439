package wizard

import "github.com/cristianadrielbraun/tonttukioski/internal/portrait"

// Event is something the participant did on the current screen.
type Event interface {
	eventName() string
}

type (
	// Start leaves the welcome screen.
	Start struct{}
	// ShowInfo opens the info screen from welcome.
	ShowInfo struct{}
	// Back returns to the fixed predecessor of the current step.
	Back struct{}
	// SubmitName submits the name step.
	SubmitName struct {
		Name  string
		Email string
	}
	// SubmitWish submits the wish step.
	SubmitWish struct {
		Wish       string
		BadgeImage string
	}
	// Capture hands over the confirmed camera frame and starts the transformation.
	Capture struct {
		Image string
	}
	// Retake discards the stored frame on the camera step.
	Retake struct{}
	// CameraFailed reports that the browser could not acquire the camera.
	CameraFailed struct {
		Reason string
	}
	// ViewCertificate opens the certificate from the result step.
	ViewCertificate struct{}
	// Restart resets the session to the welcome step.
	Restart struct{}
	// BadgeIssued records a successful badge issuance.
	BadgeIssued struct {
		CredentialURL string
		Message       string
	}

	transformDone struct {
		generation uint64
		result     portrait.Result
		err        error
	}
)

func (Start) eventName() string           { return "start" }
func (ShowInfo) eventName() string        { return "show_info" }
func (Back) eventName() string            { return "back" }
func (SubmitName) eventName() string      { return "submit_name" }
func (SubmitWish) eventName() string      { return "submit_wish" }
func (Capture) eventName() string         { return "capture" }
func (Retake) eventName() string          { return "retake" }
func (CameraFailed) eventName() string    { return "camera_failed" }
func (ViewCertificate) eventName() string { return "view_certificate" }
func (Restart) eventName() string         { return "restart" }
func (BadgeIssued) eventName() string     { return "badge_issued" }
func (transformDone) eventName() string   { return "transform_done" }
