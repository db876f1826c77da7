package card

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-card-api/internal/models"
)

type stubLogo struct {
	img image.Image
	err error
}

func (s stubLogo) Logo(context.Context) (image.Image, error) {
	return s.img, s.err
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func assertPixel(t *testing.T, img image.Image, x, y int, want color.RGBA) {
	t.Helper()
	r, g, b, _ := img.At(x, y).RGBA()
	got := [3]int{int(r >> 8), int(g >> 8), int(b >> 8)}
	exp := [3]int{int(want.R), int(want.G), int(want.B)}
	for i := range got {
		diff := got[i] - exp[i]
		if diff < -2 || diff > 2 {
			t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, exp)
		}
	}
}

func sampleStudent() models.Student {
	return models.Student{
		ID:                 "s-1",
		Name:               "Ana Souza",
		RegistrationNumber: "2024001",
		ClassName:          "5A",
		GuardianName:       "Maria Souza",
		SchoolName:         "Escola Adventista de Santa Cecília",
		Status:             models.StatusGreen,
	}
}

func renderImage(t *testing.T, r *Renderer, student models.Student) image.Image {
	t.Helper()
	surface, err := NewSurface()
	require.NoError(t, err)
	defer surface.Close()
	require.NoError(t, r.Render(context.Background(), surface, student))
	return surface.Image()
}

func TestStatusColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0x4C, G: 0xAF, B: 0x50, A: 0xFF}, StatusColor(models.StatusGreen))
	assert.Equal(t, color.RGBA{R: 0xFF, G: 0xC1, B: 0x07, A: 0xFF}, StatusColor(models.StatusYellow))
	assert.Equal(t, color.RGBA{R: 0xF4, G: 0x43, B: 0x36, A: 0xFF}, StatusColor(models.StatusRed))
	assert.Equal(t, StatusColor(models.StatusGreen), StatusColor("purple"))
}

func TestTruncate(t *testing.T) {
	measure := func(s string) float64 { return float64(len([]rune(s)) * 10) }

	tests := []struct {
		name  string
		value string
		max   float64
		want  string
	}{
		{name: "fits", value: "abcdef", max: 100, want: "abcdef"},
		{name: "exact fit", value: "abcdefghij", max: 100, want: "abcdefghij"},
		{name: "too wide", value: "abcdefghijklmno", max: 100, want: "abcdefg..."},
		{name: "stops at three characters", value: "abcd", max: 30, want: "abc..."},
		{name: "three characters unchanged", value: "abc", max: 20, want: "abc"},
		{name: "multibyte runes", value: "Responsável Legal", max: 100, want: "Respons..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.value, tt.max, measure)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderProducesCardSizedImage(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)

	data, err := r.RenderPNG(context.Background(), sampleStudent())
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, Width, cfg.Width)
	assert.Equal(t, Height, cfg.Height)
}

func TestRenderBandsFollowStatus(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)

	for _, status := range []models.StudentStatus{models.StatusGreen, models.StatusYellow, models.StatusRed} {
		student := sampleStudent()
		student.Status = status
		img := renderImage(t, r, student)

		want := StatusColor(status)
		assertPixel(t, img, 500, 60, want)
		assertPixel(t, img, 20, 600, want)
		assertPixel(t, img, circleX, circleY, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})
	}
}

func TestRenderPlaceholderWithoutPhoto(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)

	img := renderImage(t, r, sampleStudent())
	assertPixel(t, img, photoX+photoWidth/2, photoY+photoHeight/2, color.RGBA{R: 0xF0, G: 0xF0, B: 0xF0, A: 0xFF})
}

func TestRenderPlaceholderForUnreadablePhoto(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)

	student := sampleStudent()
	student.Photo = []byte("garbage")
	img := renderImage(t, r, student)
	assertPixel(t, img, photoX+photoWidth/2, photoY+photoHeight/2, color.RGBA{R: 0xF0, G: 0xF0, B: 0xF0, A: 0xFF})
}

func TestRenderDrawsPhoto(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)

	blue := color.RGBA{B: 0xFF, A: 0xFF}
	student := sampleStudent()
	student.Photo = encodePNG(t, solid(30, 40, blue))
	img := renderImage(t, r, student)
	assertPixel(t, img, photoX+photoWidth/2, photoY+photoHeight/2, blue)
}

func TestRenderDrawsLogo(t *testing.T) {
	purple := color.RGBA{R: 0x80, B: 0x80, A: 0xFF}
	r, err := NewRenderer(stubLogo{img: solid(200, 100, purple)})
	require.NoError(t, err)

	img := renderImage(t, r, sampleStudent())
	assertPixel(t, img, 100, 60, purple)
	assertPixel(t, img, 500, 60, StatusColor(models.StatusGreen))
}

func TestRenderToleratesLogoFailure(t *testing.T) {
	r, err := NewRenderer(stubLogo{err: errors.New("offline")})
	require.NoError(t, err)

	img := renderImage(t, r, sampleStudent())
	assertPixel(t, img, 100, 60, StatusColor(models.StatusGreen))
}

func TestRenderPhasesRunInOrder(t *testing.T) {
	var phases []Phase
	r, err := NewRenderer(nil, WithPhaseHook(func(_ string, phase Phase) {
		phases = append(phases, phase)
	}))
	require.NoError(t, err)

	_, err = r.RenderPNG(context.Background(), sampleStudent())
	require.NoError(t, err)
	assert.Equal(t, []Phase{PhaseLoadingLogo, PhaseLoadingPhoto, PhaseDrawingText, PhaseDone}, phases)
}

func TestRenderHonoursCancellation(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.RenderPNG(ctx, sampleStudent())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderOnClosedSurface(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)

	surface, err := NewSurface()
	require.NoError(t, err)
	require.NoError(t, surface.Close())

	err = r.Render(context.Background(), surface, sampleStudent())
	assert.ErrorIs(t, err, ErrSurfaceUnavailable)
	assert.ErrorIs(t, surface.EncodePNG(&bytes.Buffer{}), ErrSurfaceUnavailable)
}

func TestSurfaceReuseClearsPreviousCard(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)

	surface, err := NewSurface()
	require.NoError(t, err)
	defer surface.Close()

	red := sampleStudent()
	red.Status = models.StatusRed
	red.Photo = encodePNG(t, solid(10, 10, color.RGBA{B: 0xFF, A: 0xFF}))
	require.NoError(t, r.Render(context.Background(), surface, red))

	require.NoError(t, r.Render(context.Background(), surface, sampleStudent()))
	img := surface.Image()
	assertPixel(t, img, 500, 60, StatusColor(models.StatusGreen))
	assertPixel(t, img, photoX+photoWidth/2, photoY+photoHeight/2, color.RGBA{R: 0xF0, G: 0xF0, B: 0xF0, A: 0xFF})
}
