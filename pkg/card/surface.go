package card

import (
	"errors"
	"image"
	"io"
	"sync"

	"github.com/gogpu/gg"
)

// ErrSurfaceUnavailable is returned when a drawing surface cannot be used.
var ErrSurfaceUnavailable = errors.New("card: drawing surface unavailable")

// Surface is a 1004x638 drawing target. A surface is not safe for
// concurrent use; callers that reuse one across renders must serialise
// access themselves.
type Surface struct {
	mu     sync.Mutex
	dc     *gg.Context
	closed bool
}

// NewSurface allocates a card-sized surface.
func NewSurface() (*Surface, error) {
	dc := gg.NewContext(Width, Height)
	if dc == nil || dc.Width() != Width || dc.Height() != Height {
		return nil, ErrSurfaceUnavailable
	}
	return &Surface{dc: dc}, nil
}

// acquire returns the context reset for a fresh card.
func (s *Surface) acquire() (*gg.Context, error) {
	if s == nil {
		return nil, ErrSurfaceUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.dc == nil {
		return nil, ErrSurfaceUnavailable
	}
	if err := s.dc.Resize(Width, Height); err != nil {
		return nil, errors.Join(ErrSurfaceUnavailable, err)
	}
	s.dc.Identity()
	s.dc.ClearPath()
	s.dc.Clear()
	return s.dc, nil
}

// Image returns a copy of the current pixels.
func (s *Surface) Image() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.dc == nil {
		return image.NewRGBA(image.Rect(0, 0, Width, Height))
	}
	_ = s.dc.FlushGPU()
	return s.dc.Image()
}

// EncodePNG writes the current pixels as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.dc == nil {
		return ErrSurfaceUnavailable
	}
	if err := s.dc.FlushGPU(); err != nil {
		return err
	}
	return s.dc.EncodePNG(w)
}

// Close releases the surface. Further use returns ErrSurfaceUnavailable.
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.dc.Close()
}
