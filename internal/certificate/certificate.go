package certificate

import (
	"fmt"
	"strings"
	"time"
)

var finnishMonths = [...]string{
	"tammikuuta", "helmikuuta", "maaliskuuta", "huhtikuuta", "toukokuuta", "kesäkuuta",
	"heinäkuuta", "elokuuta", "syyskuuta", "lokakuuta", "marraskuuta", "joulukuuta",
}

// FormatDate renders t as a Finnish long date, e.g. "19. lokakuuta 2026".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d. %s %d", t.Day(), finnishMonths[t.Month()-1], t.Year())
}

// QRTarget picks what the certificate QR code links to: the issued
// credential when there is one, else the public kiosk page.
func QRTarget(credentialURL, publicURL string) string {
	if u, err := NormalizeURL(credentialURL); err == nil {
		return u
	}
	if u, err := NormalizeURL(publicURL); err == nil {
		return u
	}
	return strings.TrimSpace(publicURL)
}
