package certificate

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"strconv"
	"strings"

	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
	"golang.org/x/image/draw"
)

const (
	maxURLLength  = 4096
	DefaultQRSize = 336
	MaxQRSize     = 2000
	qrPaddingPct  = 7
	qrModuleWidth = 16
)

var ErrInvalidURL = errors.New("certificate: invalid url")

// QROptions controls the rendered QR code.
type QROptions struct {
	Size  int // edge length in pixels, clamped to [64, MaxQRSize]
	FG    color.RGBA
	BG    color.RGBA
	Shape string // "rectangle" or "circle"
}

// DefaultQROptions renders black modules on white.
func DefaultQROptions() QROptions {
	return QROptions{
		Size: DefaultQRSize,
		FG:   color.RGBA{0, 0, 0, 255},
		BG:   color.RGBA{255, 255, 255, 255},
	}
}

// NormalizeURL accepts http and https URLs only. A missing scheme defaults
// to https.
func NormalizeURL(s string) (string, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return "", fmt.Errorf("%w: url is required", ErrInvalidURL)
	}
	if !strings.Contains(v, "://") {
		v = "https://" + v
	}
	if len(v) > maxURLLength {
		return "", fmt.Errorf("%w: url is too long", ErrInvalidURL)
	}
	u, err := url.ParseRequestURI(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: only http and https urls are supported", ErrInvalidURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: url must include a host", ErrInvalidURL)
	}
	return u.String(), nil
}

// ParseColor reads "#rrggbb", "rrggbb" or "transparent".
func ParseColor(param string, def color.RGBA) color.RGBA {
	param = strings.TrimSpace(param)
	if param == "" {
		return def
	}
	if strings.EqualFold(param, "transparent") {
		return color.RGBA{}
	}
	param = strings.TrimPrefix(param, "#")
	if len(param) != 6 {
		return def
	}
	v, err := strconv.ParseUint(param, 16, 32)
	if err != nil {
		return def
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 255}
}

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

// QRCode renders content as a square PNG with a quiet-zone padding.
func QRCode(content string, opts QROptions) ([]byte, error) {
	if opts.Size <= 0 {
		opts.Size = DefaultQRSize
	}
	opts.Size = min(max(opts.Size, 64), MaxQRSize)

	qrc, err := qrcode.NewWith(content, qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionQuart))
	if err != nil {
		return nil, fmt.Errorf("create qr code: %w", err)
	}

	imgOpts := []standard.ImageOption{
		standard.WithQRWidth(qrModuleWidth),
		standard.WithBorderWidth(0),
		standard.WithFgColor(opts.FG),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	}
	if opts.BG.A == 0 {
		imgOpts = append(imgOpts, standard.WithBgTransparent())
	} else {
		imgOpts = append(imgOpts, standard.WithBgColor(opts.BG))
	}
	if opts.Shape == "circle" {
		imgOpts = append(imgOpts, standard.WithCircleShape())
	}

	var raw bytes.Buffer
	w := standard.NewWithWriter(nopCloser{&raw}, imgOpts...)
	if err := qrc.Save(w); err != nil {
		return nil, fmt.Errorf("write qr code: %w", err)
	}

	src, err := png.Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("decode qr code: %w", err)
	}
	out := pad(src, opts.Size, opts.BG)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return buf.Bytes(), nil
}

// pad scales the code with nearest-neighbour sampling, keeping module edges
// sharp, and centres it on a size×size canvas.
func pad(src image.Image, size int, bg color.RGBA) *image.RGBA {
	padding := size * qrPaddingPct / 100
	inner := size - 2*padding

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	if bg.A != 0 {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	}
	target := image.Rect(padding, padding, padding+inner, padding+inner)
	draw.NearestNeighbor.Scale(dst, target, src, src.Bounds(), draw.Over, nil)
	return dst
}
