package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-card-api/internal/models"
	"github.com/noah-isme/student-card-api/internal/repository"
	"github.com/noah-isme/student-card-api/pkg/archive"
	"github.com/noah-isme/student-card-api/pkg/card"
	appErrors "github.com/noah-isme/student-card-api/pkg/errors"
)

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindMany(ctx context.Context, ids []string) ([]models.Student, error)
}

type cardRenderer interface {
	RenderPNG(ctx context.Context, student models.Student) ([]byte, error)
}

type cardPackager interface {
	PackageBytes(ctx context.Context, students []models.Student, opts ...archive.PackageOption) ([]byte, error)
}

type cardMetrics interface {
	ObserveCardRendered(status models.StudentStatus, duration time.Duration)
}

// CardFile is a rendered download.
type CardFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Count       int
}

// CardService renders single cards and synchronous archives.
type CardService struct {
	students studentReader
	renderer cardRenderer
	packager cardPackager
	metrics  cardMetrics
	logger   *zap.Logger
}

// NewCardService constructs the card service. metrics may be nil.
func NewCardService(students studentReader, renderer cardRenderer, packager cardPackager, metrics cardMetrics, logger *zap.Logger) *CardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CardService{
		students: students,
		renderer: renderer,
		packager: packager,
		metrics:  metrics,
		logger:   logger,
	}
}

// RenderCard rasterizes one student's card as PNG.
func (s *CardService) RenderCard(ctx context.Context, id string) (*CardFile, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load student")
	}

	start := time.Now()
	data, err := s.renderer.RenderPNG(ctx, *student)
	if err != nil {
		s.logger.Sugar().Errorw("card render failed", "student_id", id, "error", err)
		return nil, appErrors.WrapAs(appErrors.ErrRenderFailed, err, "")
	}
	s.observe(*student, time.Since(start))

	return &CardFile{
		Filename:    archive.CardFilename(*student),
		ContentType: "image/png",
		Data:        data,
		Count:       1,
	}, nil
}

// Archive packages the selected students, or all of them when ids is
// empty, into one ZIP.
func (s *CardService) Archive(ctx context.Context, ids []string) (*CardFile, error) {
	students, err := s.selectStudents(ctx, ids)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := s.packager.PackageBytes(ctx, students)
	if err != nil {
		s.logger.Sugar().Errorw("card archive failed", "count", len(students), "error", err)
		return nil, appErrors.WrapAs(appErrors.ErrPackagingFailed, err, "")
	}
	elapsed := time.Since(start)
	for _, student := range students {
		s.observe(student, elapsed/time.Duration(len(students)))
	}

	return &CardFile{
		Filename:    archive.ArchiveName,
		ContentType: archive.ContentType,
		Data:        data,
		Count:       len(students),
	}, nil
}

func (s *CardService) selectStudents(ctx context.Context, ids []string) ([]models.Student, error) {
	students, err := s.students.FindMany(ctx, ids)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more students not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no students to package")
	}
	return students, nil
}

func (s *CardService) observe(student models.Student, d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveCardRendered(student.Status, d)
	}
}

var _ cardRenderer = (*card.Renderer)(nil)
var _ cardPackager = (*archive.Packager)(nil)
