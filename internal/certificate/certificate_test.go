package certificate

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristianadrielbraun/tonttukioski/internal/dataurl"
)

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "19. lokakuuta 2026", FormatDate(time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, "1. tammikuuta 2025", FormatDate(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "24. joulukuuta 2026", FormatDate(time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)))
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"https://joulunosaaja.fi", "https://joulunosaaja.fi", true},
		{"  joulunosaaja.fi/tonttu ", "https://joulunosaaja.fi/tonttu", true},
		{"http://example.test/a?b=c", "http://example.test/a?b=c", true},
		{"", "", false},
		{"ftp://example.test", "", false},
		{"javascript:alert(1)", "", false},
		{"https://", "", false},
	}
	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrInvalidURL, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseColor(t *testing.T) {
	def := color.RGBA{1, 2, 3, 255}
	assert.Equal(t, color.RGBA{0xb9, 0x1c, 0x1c, 255}, ParseColor("#b91c1c", def))
	assert.Equal(t, color.RGBA{0x15, 0x80, 0x3d, 255}, ParseColor("15803d", def))
	assert.Equal(t, color.RGBA{}, ParseColor("transparent", def))
	assert.Equal(t, def, ParseColor("#fff", def))
	assert.Equal(t, def, ParseColor("zzzzzz", def))
	assert.Equal(t, def, ParseColor("", def))
}

func TestQRCodeSizeAndColors(t *testing.T) {
	opts := DefaultQROptions()
	opts.Size = 300
	data, err := QRCode("https://joulunosaaja.fi", opts)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 300, 300), img.Bounds())

	// quiet zone
	r, g, b, _ := img.At(2, 2).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff}, []uint32{r, g, b})

	dark := 0
	for y := 0; y < 300; y += 3 {
		for x := 0; x < 300; x += 3 {
			if r, _, _, a := img.At(x, y).RGBA(); a > 0 && r < 0x4000 {
				dark++
			}
		}
	}
	assert.Greater(t, dark, 500)
}

func TestQRCodeClampsSize(t *testing.T) {
	data, err := QRCode("https://joulunosaaja.fi", QROptions{Size: 10_000, FG: color.RGBA{A: 255}, BG: color.RGBA{255, 255, 255, 255}})
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, MaxQRSize, cfg.Width)
}

func TestQRTarget(t *testing.T) {
	assert.Equal(t, "https://obf.example.test/c/1", QRTarget("https://obf.example.test/c/1", "https://joulunosaaja.fi"))
	assert.Equal(t, "https://joulunosaaja.fi", QRTarget("", "https://joulunosaaja.fi"))
}

func TestBadgePNGFallback(t *testing.T) {
	data, err := BadgePNG("")
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, BadgeSize, img.Bounds().Dx())

	_, _, _, a := img.At(BadgeSize/2, BadgeSize/2).RGBA()
	assert.NotZero(t, a, "centre of the bundled badge is painted")
	_, _, _, a = img.At(1, 1).RGBA()
	assert.Zero(t, a, "corners stay transparent")
}

func TestBadgePNGPassthroughAndSVG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	got, err := BadgePNG(dataurl.Encode("image/png", buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), got)

	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 20 10"><rect width="20" height="10" fill="#ff0000"/></svg>`
	got, err = BadgePNG(dataurl.Encode("image/svg+xml", []byte(svg)))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(got))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, BadgeSize, BadgeSize), img.Bounds())

	r, _, _, a := img.At(BadgeSize/2, BadgeSize/2).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.Greater(t, r, uint32(0xf000))
	_, _, _, a = img.At(BadgeSize/2, 10).RGBA()
	assert.Zero(t, a, "letterbox above a wide badge stays transparent")

	_, err = BadgePNG(dataurl.Encode("image/gif", []byte("GIF89a")))
	assert.ErrorIs(t, err, ErrUnsupportedBadge)
}
