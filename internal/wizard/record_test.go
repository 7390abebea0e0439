package wizard

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristianadrielbraun/tonttukioski/internal/dataurl"
)

func testPhoto(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return dataurl.Encode("image/png", buf.Bytes())
}

func TestNormalizeName(t *testing.T) {
	name, err := NormalizeName("  Aino ")
	require.NoError(t, err)
	assert.Equal(t, "Aino", name)

	_, err = NormalizeName("Ä")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	long := "Aino Marjatta Kaarina Eleonoora Pohjanpalo-Heikkilä von Lapinlahti-Suomussalmi"
	name, err = NormalizeName(long)
	require.NoError(t, err)
	assert.Equal(t, long, name, "kept verbatim")

	_, err = NormalizeName(strings.Repeat("ö", MaxNameRunes+1))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestNormalizeWishCountsRunes(t *testing.T) {
	exact := strings.Repeat("ä", MaxWishRunes)
	wish, err := NormalizeWish(exact)
	require.NoError(t, err)
	assert.Equal(t, exact, wish)

	wish, err = NormalizeWish(exact + "yli")
	require.NoError(t, err)
	assert.Equal(t, exact, wish)
}

func TestNormalizeBadgeImage(t *testing.T) {
	got, err := NormalizeBadgeImage("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NormalizeBadgeImage("not a data url %%%")
	assert.ErrorIs(t, err, ErrValidation)

	big := dataurl.Encode("image/png", make([]byte, MaxBadgeImageBytes+1))
	_, err = NormalizeBadgeImage(big)
	assert.ErrorIs(t, err, ErrValidation)

	ok := testPhoto(t)
	got, err = NormalizeBadgeImage(ok)
	require.NoError(t, err)
	assert.Equal(t, ok, got)
}

func TestRecordBadgeAvailable(t *testing.T) {
	assert.False(t, Record{}.BadgeAvailable())
	assert.False(t, Record{Email: "aino"}.BadgeAvailable())
	assert.True(t, Record{Email: "aino@example.test"}.BadgeAvailable())
}

func TestStepPredecessors(t *testing.T) {
	for step, want := range map[Step]Step{
		StepInfo:        StepWelcome,
		StepName:        StepWelcome,
		StepWish:        StepName,
		StepCamera:      StepWish,
		StepCertificate: StepResult,
	} {
		got, ok := step.Predecessor()
		require.True(t, ok, step)
		assert.Equal(t, want, got, step)
	}
	for _, step := range []Step{StepWelcome, StepTransform, StepResult} {
		_, ok := step.Predecessor()
		assert.False(t, ok, step)
	}
	assert.False(t, Step("elsewhere").Valid())
}
