// Package button renders the kiosk's large touch buttons.
package button

import (
	"github.com/a-h/templ"
	twmerge "github.com/Oudwins/tailwind-merge-go"
)

type Variant string

const (
	VariantPrimary   Variant = "primary"
	VariantSecondary Variant = "secondary"
	VariantGhost     Variant = "ghost"
	VariantFestive   Variant = "festive"
)

type Props struct {
	Label    string
	Variant  Variant
	Type     string // "button" unless set
	Class    string
	Disabled bool
	// Attributes carries hx-* and data-* attributes.
	Attributes templ.Attributes
}

var variantClasses = map[Variant]string{
	VariantPrimary:   "bg-red-700 text-white hover:bg-red-800",
	VariantSecondary: "bg-white text-red-800 border-2 border-red-700 hover:bg-red-50",
	VariantGhost:     "bg-transparent text-slate-700 hover:bg-slate-100",
	VariantFestive:   "bg-green-700 text-white hover:bg-green-800",
}

func (p Props) buttonType() string {
	if p.Type == "" {
		return "button"
	}
	return p.Type
}

func (p Props) classes() string {
	variant := p.Variant
	if variant == "" {
		variant = VariantPrimary
	}
	return twmerge.Merge(
		"kiosk-button inline-flex min-h-14 items-center justify-center rounded-xl px-8 py-4 text-xl font-semibold transition disabled:opacity-50",
		variantClasses[variant],
		p.Class,
	)
}
