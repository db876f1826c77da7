package card

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"go.uber.org/zap"

	"github.com/noah-isme/student-card-api/internal/models"
	"github.com/noah-isme/student-card-api/pkg/card/assets"
)

// LogoSource supplies the school logo drawn in the header.
type LogoSource interface {
	Logo(ctx context.Context) (image.Image, error)
}

// Phase names a step of a render.
type Phase string

const (
	PhaseLoadingLogo  Phase = "loading-logo"
	PhaseLoadingPhoto Phase = "loading-photo"
	PhaseDrawingText  Phase = "drawing-text"
	PhaseDone         Phase = "done"
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger used to report degraded assets.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPhaseHook registers a callback invoked as a render enters each phase.
func WithPhaseHook(hook func(studentID string, phase Phase)) Option {
	return func(r *Renderer) {
		r.onPhase = hook
	}
}

// Renderer draws student cards. It holds no per-card state and may be
// shared; surfaces may not.
type Renderer struct {
	logo    LogoSource
	fonts   *fontSet
	logger  *zap.Logger
	onPhase func(string, Phase)
}

// NewRenderer builds a renderer. A nil logo source draws cards without a logo.
func NewRenderer(logo LogoSource, opts ...Option) (*Renderer, error) {
	fonts, err := loadFonts()
	if err != nil {
		return nil, err
	}
	r := &Renderer{
		logo:   logo,
		fonts:  fonts,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Render draws student onto surface. It returns only once every phase has
// completed. Asset failures degrade the card; an unusable surface or a
// cancelled context fails it.
func (r *Renderer) Render(ctx context.Context, surface *Surface, student models.Student) error {
	dc, err := surface.acquire()
	if err != nil {
		return err
	}

	band := StatusColor(student.Status)
	dc.ClearWithColor(gg.White)
	if err := fillRect(dc, band, 0, 0, Width, bandHeight); err != nil {
		return fmt.Errorf("card: draw header: %w", err)
	}

	r.enter(student.ID, PhaseLoadingLogo)
	if err := ctx.Err(); err != nil {
		return err
	}
	if logo := r.loadLogo(ctx, student.ID); logo != nil {
		drawLogo(dc, logo)
	}
	dc.SetHexColor("#FFFFFF")
	dc.DrawCircle(circleX, circleY, circleRadius)
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("card: draw header: %w", err)
	}

	r.enter(student.ID, PhaseLoadingPhoto)
	if err := ctx.Err(); err != nil {
		return err
	}
	if photo := r.decodePhoto(student); photo != nil {
		dc.DrawImageEx(gg.ImageBufFromImage(photo), gg.DrawImageOptions{
			X:         photoX,
			Y:         photoY,
			DstWidth:  photoWidth,
			DstHeight: photoHeight,
		})
	} else {
		dc.SetHexColor(placeholderColor)
		dc.DrawRectangle(photoX, photoY, photoWidth, photoHeight)
		if err := dc.Fill(); err != nil {
			return fmt.Errorf("card: draw photo placeholder: %w", err)
		}
	}

	r.enter(student.ID, PhaseDrawingText)
	if err := ctx.Err(); err != nil {
		return err
	}
	r.drawFields(dc, student)
	if err := r.drawFooter(dc, band, student.SchoolName); err != nil {
		return err
	}

	r.enter(student.ID, PhaseDone)
	return nil
}

// RenderPNG renders student on a fresh surface and returns the PNG bytes.
func (r *Renderer) RenderPNG(ctx context.Context, student models.Student) ([]byte, error) {
	surface, err := NewSurface()
	if err != nil {
		return nil, err
	}
	defer surface.Close()

	if err := r.Render(ctx, surface, student); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := surface.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("card: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) enter(studentID string, phase Phase) {
	if r.onPhase != nil {
		r.onPhase(studentID, phase)
	}
}

func (r *Renderer) loadLogo(ctx context.Context, studentID string) image.Image {
	if r.logo == nil {
		return nil
	}
	logo, err := r.logo.Logo(ctx)
	if err != nil {
		r.logger.Sugar().Warnw("logo unavailable, drawing card without it", "student_id", studentID, "error", err)
		return nil
	}
	return logo
}

func (r *Renderer) decodePhoto(student models.Student) image.Image {
	if !student.HasPhoto() {
		return nil
	}
	photo, err := assets.DecodeImage(student.Photo)
	if err != nil {
		r.logger.Sugar().Warnw("photo unreadable, drawing placeholder", "student_id", student.ID, "error", err)
		return nil
	}
	return photo
}

func (r *Renderer) drawFields(dc *gg.Context, student models.Student) {
	type field struct{ label, value string }
	fields := []field{
		{LabelName, student.Name},
		{LabelRegistration, student.RegistrationNumber},
		{LabelGuardian, student.GuardianName},
		{LabelClass, student.ClassName},
	}
	if len(student.AuthorizedPeople) > 0 {
		fields = append(fields, field{LabelAuthorized, strings.Join(student.AuthorizedPeople, ", ")})
	}

	dc.SetHexColor(textColor)
	y := float64(photoY)
	for _, f := range fields {
		dc.SetFont(r.fonts.label)
		dc.DrawString(f.label, textX, y)

		dc.SetFont(r.fonts.value)
		dc.DrawString(Truncate(f.value, valueMaxWidth, measureWith(r.fonts.value)), textX, y+valueOffset)
		y += lineHeight
	}
}

func (r *Renderer) drawFooter(dc *gg.Context, band color.RGBA, schoolName string) error {
	if err := fillRect(dc, band, 0, Height-bandHeight, Width, bandHeight); err != nil {
		return fmt.Errorf("card: draw footer: %w", err)
	}

	measure := measureWith(r.fonts.school)
	name := Truncate(schoolName, schoolMaxWidth, measure)
	dc.SetHexColor("#FFFFFF")
	dc.SetFont(r.fonts.school)
	dc.DrawString(name, (Width-measure(name))/2, schoolBaseline)

	dc.SetHexColor(borderColor)
	dc.SetLineWidth(1)
	dc.DrawRectangle(0, 0, Width, Height)
	if err := dc.Stroke(); err != nil {
		return fmt.Errorf("card: draw border: %w", err)
	}
	return nil
}

func drawLogo(dc *gg.Context, logo image.Image) {
	b := logo.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	width := float64(b.Dx()) * logoHeight / float64(b.Dy())
	dc.DrawImageEx(gg.ImageBufFromImage(logo), gg.DrawImageOptions{
		X:         logoX,
		Y:         logoY,
		DstWidth:  width,
		DstHeight: logoHeight,
	})
}

func fillRect(dc *gg.Context, c color.RGBA, x, y, w, h float64) error {
	dc.SetColor(c)
	dc.DrawRectangle(x, y, w, h)
	return dc.Fill()
}

func measureWith(face text.Face) MeasureFunc {
	return func(s string) float64 {
		w, _ := text.Measure(s, face)
		return w
	}
}
