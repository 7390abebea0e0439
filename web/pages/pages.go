// Package pages renders the kiosk page, its step screens and the operator
// settings page.
package pages

import (
	"unicode/utf8"

	"github.com/a-h/templ"

	"github.com/cristianadrielbraun/tonttukioski/web/components"
)

// StageID is the element every wizard fragment replaces.
const StageID = "stage"

const stageTarget = "#" + StageID

// htmx swaps error responses too; the server always answers with a screen.
const htmxConfig = `{"responseHandling":[{"code":"204","swap":false},{"code":"...","swap":true}]}`

func post(path string) templ.Attributes {
	return templ.Attributes{"hx-post": path, "hx-target": stageTarget, "hx-swap": "innerHTML"}
}

func action(name string) templ.Attributes {
	return templ.Attributes{"data-action": name}
}

// showFieldError reports whether view's error belongs under field. Errors
// without a field show under every field of the form.
func showFieldError(view components.StepView, field string) bool {
	return view.Error != "" && (view.ErrorField == "" || view.ErrorField == field)
}

func wishCount(view components.StepView) int {
	return utf8.RuneCountInString(view.Wish)
}

func badgeConfirm(email string) string {
	return "Lähetetäänkö Joulun Osaaja -osaamismerkki osoitteeseen " + email + "?"
}

var infoSections = []struct{ title, body string }{
	{"Tekoäly", "Tekoäly muuttaa valokuvasi tonttukuvaksi ja säilyttää tunnistettavuutesi samalla kun lisää joulutaian."},
	{"Tietojen tallennus", "Kuvat ja tiedot säilytetään vain tapahtuman ajan ja poistetaan sen jälkeen."},
	{"Open Badge -osaamismerkki", "Saat Open Badge Factory -yhteensopivan osaamismerkin sähköpostiisi. Voit lisätä sen CV:hesi tai digitaaliseen portfolioosi."},
}
