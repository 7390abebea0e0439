// Package toast renders notification toasts as templ components for HTMX swaps.
package toast

import (
	"github.com/a-h/templ"
	twmerge "github.com/Oudwins/tailwind-merge-go"
)

type Variant string

const (
	VariantDefault Variant = "default"
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantWarning Variant = "warning"
	VariantInfo    Variant = "info"
)

type Position string

const (
	PositionTopRight     Position = "top-right"
	PositionTopCenter    Position = "top-center"
	PositionBottomRight  Position = "bottom-right"
	PositionBottomCenter Position = "bottom-center"
)

// ContainerID is the element toasts are appended to.
const ContainerID = "toasts"

type Props struct {
	ID            string
	Class         string
	Title         string
	Description   string
	Variant       Variant
	Position      Position
	Duration      int // milliseconds, 0 keeps the toast until dismissed
	Dismissible   bool
	ShowIndicator bool
	Icon          bool
	// OOB appends the toast to the container as an out-of-band swap.
	OOB bool
}

var variantClasses = map[Variant]string{
	VariantDefault: "border-slate-200 bg-white text-slate-900",
	VariantSuccess: "border-green-600 bg-green-50 text-green-900",
	VariantError:   "border-red-600 bg-red-50 text-red-900",
	VariantWarning: "border-amber-500 bg-amber-50 text-amber-900",
	VariantInfo:    "border-sky-500 bg-sky-50 text-sky-900",
}

var variantIcons = map[Variant]string{
	VariantSuccess: "✓",
	VariantError:   "!",
	VariantWarning: "⚠",
	VariantInfo:    "i",
}

var positionClasses = map[Position]string{
	PositionTopRight:     "top-4 right-4",
	PositionTopCenter:    "top-4 left-1/2 -translate-x-1/2",
	PositionBottomRight:  "bottom-4 right-4",
	PositionBottomCenter: "bottom-4 left-1/2 -translate-x-1/2",
}

func (p Props) variant() Variant {
	if p.Variant == "" {
		return VariantDefault
	}
	return p.Variant
}

func (p Props) classes() string {
	position := p.Position
	if position == "" {
		position = PositionBottomRight
	}
	return twmerge.Merge(
		"toast fixed z-50 flex w-80 items-start gap-3 rounded-lg border-l-4 p-4 shadow-lg",
		positionClasses[position],
		variantClasses[p.variant()],
		p.Class,
	)
}

func (p Props) idAttrs() templ.Attributes {
	if p.ID == "" {
		return nil
	}
	return templ.Attributes{"id": p.ID}
}
