package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-card-api/internal/models"
	"github.com/noah-isme/student-card-api/pkg/card"
)

// ErrEmptyBatch is returned when there is nothing to package.
var ErrEmptyBatch = errors.New("archive: no students to package")

// Renderer draws one card onto a surface.
type Renderer interface {
	Render(ctx context.Context, surface *card.Surface, student models.Student) error
}

// ProgressFunc is called after each card is added.
type ProgressFunc func(done, total int)

// PackageOption tunes a single Package call.
type PackageOption func(*packageConfig)

type packageConfig struct {
	progress ProgressFunc
}

// WithProgress reports progress while packaging.
func WithProgress(fn ProgressFunc) PackageOption {
	return func(c *packageConfig) {
		c.progress = fn
	}
}

// Packager renders a collection of cards one at a time onto a single owned
// surface and writes them into a ZIP archive. Calls are serialised: the
// surface is never drawn on by two renders at once.
type Packager struct {
	mu       sync.Mutex
	renderer Renderer
	surface  *card.Surface
	logger   *zap.Logger
}

// NewPackager allocates the packager's surface.
func NewPackager(renderer Renderer, logger *zap.Logger) (*Packager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	surface, err := card.NewSurface()
	if err != nil {
		return nil, err
	}
	return &Packager{renderer: renderer, surface: surface, logger: logger}, nil
}

// Package writes the archive for students to w and returns the number of
// entries. Nothing is written to w unless every card succeeds.
func (p *Packager) Package(ctx context.Context, students []models.Student, w io.Writer, opts ...PackageOption) (int, error) {
	data, err := p.PackageBytes(ctx, students, opts...)
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(data); err != nil {
		return 0, fmt.Errorf("archive: write: %w", err)
	}
	return len(students), nil
}

// PackageBytes builds the archive in memory.
func (p *Packager) PackageBytes(ctx context.Context, students []models.Student, opts ...PackageOption) ([]byte, error) {
	if len(students) == 0 {
		return nil, ErrEmptyBatch
	}
	cfg := packageConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	names := EntryNames(students)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, student := range students {
		if err := p.renderer.Render(ctx, p.surface, student); err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("archive: render %q: %w", student.ID, err)
		}
		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     names[i],
			Method:   zip.Deflate,
			Modified: start,
		})
		if err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("archive: create entry %q: %w", names[i], err)
		}
		if err := p.surface.EncodePNG(entry); err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("archive: encode %q: %w", names[i], err)
		}
		if cfg.progress != nil {
			cfg.progress(i+1, len(students))
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive: finalize: %w", err)
	}

	p.logger.Sugar().Infow("cards packaged",
		"count", len(students),
		"bytes", buf.Len(),
		"duration", time.Since(start).String(),
	)
	return buf.Bytes(), nil
}

// Close releases the packager's surface.
func (p *Packager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.surface.Close()
}
