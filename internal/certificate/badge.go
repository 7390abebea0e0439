// Package certificate produces the assets of the printable elf certificate:
// the badge image, the QR code and the Finnish issue date.
package certificate

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/cristianadrielbraun/tonttukioski/internal/dataurl"
)

// BadgeSize is the edge length of rasterised badges.
const BadgeSize = 512

//go:embed assets/badge-fallback.svg
var fallbackBadge []byte

var ErrUnsupportedBadge = errors.New("certificate: badge image must be PNG or SVG")

// BadgePNG returns the badge as PNG bytes. An empty data URL yields the
// bundled badge.
func BadgePNG(badgeDataURL string) ([]byte, error) {
	if badgeDataURL == "" {
		return RasterizeSVG(fallbackBadge, BadgeSize)
	}
	mediaType, data, err := dataurl.Decode(badgeDataURL)
	if err != nil {
		return nil, fmt.Errorf("decode badge: %w", err)
	}
	switch mediaType {
	case "image/png":
		if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("decode badge png: %w", err)
		}
		return data, nil
	case "image/svg+xml":
		return RasterizeSVG(data, BadgeSize)
	}
	return nil, fmt.Errorf("%w: got %q", ErrUnsupportedBadge, mediaType)
}

// RasterizeSVG renders svg centred on a transparent size×size canvas,
// preserving its aspect ratio.
func RasterizeSVG(svg []byte, size int) ([]byte, error) {
	if size <= 0 {
		size = BadgeSize
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	w, h := icon.ViewBox.W, icon.ViewBox.H
	if w <= 0 || h <= 0 {
		w, h = float64(size), float64(size)
	}
	scale := float64(size) / max(w, h)
	outW, outH := int(w*scale), int(h*scale)
	icon.SetTarget(float64((size-outW)/2), float64((size-outH)/2), float64(outW), float64(outH))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode badge: %w", err)
	}
	return buf.Bytes(), nil
}
