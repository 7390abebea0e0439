package portrait

import "math"

// Canvas geometry of the local portrait.
const (
	CanvasWidth  = 900
	CanvasHeight = 1200

	maxImageWidthRatio  = 0.82
	maxImageHeightRatio = 0.72
	imageOffsetY        = 30
)

// Layout places the captured photo on the canvas.
type Layout struct {
	Scale   float64
	DrawW   float64
	DrawH   float64
	OffsetX float64
	OffsetY float64
}

// ComputeLayout fits a srcW×srcH photo inside 82%×72% of the canvas without
// cropping or distorting it, centred horizontally and pushed down by a fixed offset.
func ComputeLayout(srcW, srcH int) Layout {
	if srcW <= 0 || srcH <= 0 {
		return Layout{}
	}
	maxW := CanvasWidth * maxImageWidthRatio
	maxH := CanvasHeight * maxImageHeightRatio
	scale := math.Min(maxW/float64(srcW), maxH/float64(srcH))
	drawW := float64(srcW) * scale
	drawH := float64(srcH) * scale
	return Layout{
		Scale:   scale,
		DrawW:   drawW,
		DrawH:   drawH,
		OffsetX: (CanvasWidth - drawW) / 2,
		OffsetY: (CanvasHeight-drawH)/2 + imageOffsetY,
	}
}

// JacketTop is where the costume jacket starts, 65% down the photo.
func (l Layout) JacketTop() float64 { return l.OffsetY + l.DrawH*0.65 }

// JacketHeight covers the remaining 35% of the photo.
func (l Layout) JacketHeight() float64 { return l.DrawH * 0.35 }

// EarY is the vertical centre of both ears.
func (l Layout) EarY() float64 { return l.OffsetY + l.DrawH*0.35 }

// EarSize is the horizontal ear radius.
func (l Layout) EarSize() float64 { return math.Min(l.DrawW, l.DrawH) * 0.12 }
