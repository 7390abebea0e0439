package wizard

import (
	"strings"
	"unicode/utf8"

	"github.com/cristianadrielbraun/tonttukioski/internal/dataurl"
)

const (
	MinNameRunes       = 2
	MaxNameRunes       = 120
	MaxWishRunes       = 160
	MaxBadgeImageBytes = 2 << 20
)

// Record is the data accumulated during one pass through the wizard.
type Record struct {
	ID            string
	Name          string
	Wish          string
	Email         string
	BadgeImage    string // PNG or SVG data URL supplied by the participant
	CapturedImage string
	ElfImageURL   string
	BadgeIssued   bool
	CredentialURL string
}

// BadgeAvailable reports whether the email is usable for badge issuance.
func (r Record) BadgeAvailable() bool {
	return strings.Contains(r.Email, "@")
}

// HasPortrait reports whether the result and certificate steps can render.
func (r Record) HasPortrait() bool {
	return r.ElfImageURL != ""
}

// NormalizeName trims the name and enforces its length. The name is printed
// on the certificate as given, so an over-long name is refused, not cut.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)
	if n < MinNameRunes {
		return "", &ValidationError{Field: "name", Reason: "Nimessä pitää olla vähintään kaksi merkkiä."}
	}
	if n > MaxNameRunes {
		return "", &ValidationError{Field: "name", Reason: "Nimi on liian pitkä todistukseen."}
	}
	return name, nil
}

// NormalizeEmail trims the optional email. Any value is kept; only values
// containing "@" enable badge issuance.
func NormalizeEmail(raw string) string {
	return strings.TrimSpace(raw)
}

// NormalizeWish truncates the wish to MaxWishRunes, as the input field does
// while typing, and rejects an empty result.
func NormalizeWish(raw string) (string, error) {
	wish := strings.TrimSpace(truncateRunes(raw, MaxWishRunes))
	if wish == "" {
		return "", &ValidationError{Field: "wish", Reason: "Kirjoita lahjatoive ennen jatkamista."}
	}
	return wish, nil
}

// NormalizeBadgeImage accepts an empty value or a PNG/SVG data URL.
func NormalizeBadgeImage(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	mediaType, data, err := dataurl.Decode(raw)
	if err != nil {
		return "", &ValidationError{Field: "badge_image", Reason: "Osaamismerkin kuvaa ei voitu lukea."}
	}
	if mediaType != "image/png" && mediaType != "image/svg+xml" {
		return "", &ValidationError{Field: "badge_image", Reason: "Osaamismerkin pitää olla PNG- tai SVG-kuva."}
	}
	if len(data) > MaxBadgeImageBytes {
		return "", &ValidationError{Field: "badge_image", Reason: "Osaamismerkin kuva on liian suuri."}
	}
	return raw, nil
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
