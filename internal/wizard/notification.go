package wizard

// Variant selects the toast style.
type Variant string

const (
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantWarning Variant = "warning"
	VariantInfo    Variant = "info"
)

// Notification is a dismissable message for the participant.
type Notification struct {
	Variant     Variant
	Title       string
	Description string
}
