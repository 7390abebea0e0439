package components

// StepView is what a wizard screen needs to render. Handlers build it from
// a wizard snapshot; components never reach into the session.
type StepView struct {
	Step string

	Name          string
	NameMax       int
	Email         string
	Wish          string
	WishMax       int
	HasBadgeImage bool
	CapturedImage string
	ElfImageURL   string

	// Result and certificate.
	BadgeAvailable bool
	BadgeIssued    bool
	CredentialURL  string
	BadgeImageURL  string
	QRImageURL     string
	IssuedOn       string

	// Error is an inline validation message for the current form.
	Error      string
	ErrorField string
}

// SettingsView backs the operator settings page.
type SettingsView struct {
	BadgeID    string
	ProxyURL   string
	DirectOBF  bool
	Configured bool
	// ReadOnly hides the form when no admin token is set.
	ReadOnly bool
	Token    string
	Saved    bool
	Error    string
}
