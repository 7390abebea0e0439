package portrait

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"math/rand/v2"
	"sync"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/cristianadrielbraun/tonttukioski/internal/dataurl"
)

const (
	maxWishRunes  = 160
	snowDots      = 80
	jpegQuality   = 90
	minFontSize   = 12
	wishFontSize  = 24
	nameFontSize  = 32
	jacketRadius  = 18
	pomPomRadius  = 16
	hatBrimHeight = 26
)

var (
	backgroundTop    = color.RGBA{0x0f, 0x1c, 0x3f, 0xff}
	backgroundMiddle = color.RGBA{0x11, 0x29, 0x4f, 0xff}
	backgroundBottom = color.RGBA{0x0b, 0x16, 0x33, 0xff}
	jacketRed        = color.NRGBA{190, 24, 35, 140}
	jacketStripe     = color.NRGBA{250, 204, 21, 204}
	earSkin          = color.RGBA{0xf5, 0xd0, 0xc5, 0xff}
	hatRed           = color.RGBA{0xb9, 0x1c, 0x1c, 0xff}
	hatBrim          = color.RGBA{0xfd, 0xe6, 0x8a, 0xff}
	hatPomPom        = color.RGBA{0xfa, 0xcc, 0x15, 0xff}
	borderGold       = color.NRGBA{250, 204, 21, 128}
	glowGold         = color.NRGBA{250, 204, 21, 20}
)

// Compositor draws a costume over the captured photo without any remote call.
type Compositor struct {
	fontsOnce sync.Once
	regular   *truetype.Font
	bold      *truetype.Font
	fontsErr  error

	// randFloat places the snow; only decorative.
	randFloat func() float64
}

func NewCompositor() *Compositor {
	return &Compositor{randFloat: rand.Float64}
}

func (c *Compositor) Transform(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, Failed("", err)
	}
	src, err := DecodeImage(req.Image)
	if err != nil {
		return Result{}, Failed("Kuvan lukeminen epäonnistui. Ota uusi kuva.", err)
	}
	img, err := c.Render(src, req.Wish, req.Name)
	if err != nil {
		return Result{}, Failed("", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Result{}, Failed("", fmt.Errorf("encode portrait: %w", err))
	}
	return Result{ImageURL: dataurl.Encode("image/jpeg", buf.Bytes())}, nil
}

// MaxImageSide bounds capture dimensions before pixels are allocated.
const MaxImageSide = 8000

// DecodeImage decodes a JPEG, PNG or WebP capture given as data URL or bare base64.
func DecodeImage(raw string) (image.Image, error) {
	_, data, err := dataurl.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if cfg.Width > MaxImageSide || cfg.Height > MaxImageSide {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d px", ErrImageDecode, cfg.Width, cfg.Height, MaxImageSide)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrImageDecode)
	}
	return img, nil
}

// TruncateWish caps the wish at 160 runes, ending in an ellipsis when cut.
func TruncateWish(wish string) string {
	if utf8.RuneCountInString(wish) <= maxWishRunes {
		return wish
	}
	runes := []rune(wish)
	return string(runes[:maxWishRunes-3]) + "…"
}

func (c *Compositor) loadFonts() error {
	c.fontsOnce.Do(func() {
		regular, err := truetype.Parse(goregular.TTF)
		if err != nil {
			c.fontsErr = fmt.Errorf("parse regular font: %w", err)
			return
		}
		bold, err := truetype.Parse(gobold.TTF)
		if err != nil {
			c.fontsErr = fmt.Errorf("parse bold font: %w", err)
			return
		}
		c.regular, c.bold = regular, bold
	})
	return c.fontsErr
}

// Render draws the portrait layers in order onto a fixed 900×1200 canvas.
func (c *Compositor) Render(src image.Image, wish, name string) (image.Image, error) {
	if err := c.loadFonts(); err != nil {
		return nil, err
	}
	b := src.Bounds()
	l := ComputeLayout(b.Dx(), b.Dy())
	if l.Scale <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrImageDecode)
	}
	const w, h = float64(CanvasWidth), float64(CanvasHeight)
	dc := gg.NewContext(CanvasWidth, CanvasHeight)

	// background
	bg := gg.NewLinearGradient(0, 0, 0, h)
	bg.AddColorStop(0, backgroundTop)
	bg.AddColorStop(0.5, backgroundMiddle)
	bg.AddColorStop(1, backgroundBottom)
	dc.SetFillStyle(bg)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	// snow
	dc.SetRGBA(1, 1, 1, 0.45)
	for i := 0; i < snowDots; i++ {
		dc.DrawCircle(c.randFloat()*w, c.randFloat()*h, c.randFloat()*3+1)
		dc.Fill()
	}

	// photo on a dim backdrop
	dc.SetRGBA(0, 0, 0, 0.25)
	dc.DrawRectangle(l.OffsetX-12, l.OffsetY-12, l.DrawW+24, l.DrawH+24)
	dc.Fill()
	dc.DrawImage(scalePhoto(src, l), int(math.Round(l.OffsetX)), int(math.Round(l.OffsetY)))

	// jacket
	jacketY, jacketH := l.JacketTop(), l.JacketHeight()
	dc.SetColor(jacketRed)
	dc.DrawRoundedRectangle(l.OffsetX, jacketY, l.DrawW, jacketH, jacketRadius)
	dc.Fill()
	dc.SetColor(jacketStripe)
	dc.DrawRectangle(l.OffsetX+l.DrawW/2-6, jacketY, 12, jacketH)
	dc.Fill()

	// ears
	earY, earSize := l.EarY(), l.EarSize()
	dc.SetColor(earSkin)
	dc.DrawEllipse(l.OffsetX-earSize*0.4, earY, earSize, earSize*0.7)
	dc.Fill()
	dc.DrawEllipse(l.OffsetX+l.DrawW+earSize*0.4, earY, earSize, earSize*0.7)
	dc.Fill()

	// hat
	hatW, hatH := l.DrawW*0.6, l.DrawH*0.35
	hatX := w/2 - hatW/2
	hatY := l.OffsetY - hatH*0.3
	dc.SetColor(hatRed)
	dc.MoveTo(hatX, hatY+hatH)
	dc.LineTo(hatX+hatW/2, hatY)
	dc.LineTo(hatX+hatW, hatY+hatH)
	dc.ClosePath()
	dc.Fill()
	dc.SetColor(hatBrim)
	dc.DrawRectangle(hatX-10, hatY+hatH-18, hatW+20, hatBrimHeight)
	dc.Fill()
	dc.SetColor(hatPomPom)
	dc.DrawCircle(hatX+hatW/2, hatY-8, pomPomRadius)
	dc.Fill()

	// border
	dc.SetColor(borderGold)
	dc.SetLineWidth(2)
	dc.DrawRectangle(l.OffsetX-8, l.OffsetY-8, l.DrawW+16, l.DrawH+16)
	dc.Stroke()

	// glow behind the wish
	glow := gg.NewRadialGradient(w/2, h-220, 0, w/2, h-220, w*0.75)
	glow.AddColorStop(0, glowGold)
	glow.AddColorStop(1, color.NRGBA{250, 204, 21, 0})
	dc.SetFillStyle(glow)
	dc.DrawEllipse(w/2, h-220, w*0.75, 260)
	dc.Fill()

	// wish
	if wish != "" {
		text := "“" + TruncateWish(wish) + "”"
		c.setFittedFace(dc, c.regular, wishFontSize, text, w*0.8)
		dc.SetRGBA(1, 1, 1, 0.6)
		dc.DrawStringAnchored(text, w/2, h-120, 0.5, 0)
	}

	// name
	if name != "" {
		c.setFittedFace(dc, c.bold, nameFontSize, name, w*0.9)
		dc.SetRGBA(1, 1, 1, 0.85)
		dc.DrawStringAnchored(name, w/2, l.OffsetY+l.DrawH+80, 0.5, 0)
	}

	return dc.Image(), nil
}

// setFittedFace shrinks the font until text fits maxWidth, like fillText's maxWidth.
func (c *Compositor) setFittedFace(dc *gg.Context, f *truetype.Font, size float64, text string, maxWidth float64) {
	for {
		dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: size}))
		width, _ := dc.MeasureString(text)
		if width <= maxWidth || size <= minFontSize {
			return
		}
		size -= 2
	}
}

func scalePhoto(src image.Image, l Layout) image.Image {
	dstW := int(math.Round(l.DrawW))
	dstH := int(math.Round(l.DrawH))
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}
