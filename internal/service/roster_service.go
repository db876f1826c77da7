package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/student-card-api/internal/models"
	"github.com/noah-isme/student-card-api/pkg/card"
	appErrors "github.com/noah-isme/student-card-api/pkg/errors"
	"github.com/noah-isme/student-card-api/pkg/export"
)

const rosterTitle = "Carteirinhas de Estudantes"

type studentLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

type csvRenderer interface {
	Render(roster export.Roster) ([]byte, error)
}

type pdfRenderer interface {
	Render(roster export.Roster) ([]byte, error)
}

// RosterService exports the session's students as a CSV or PDF list.
type RosterService struct {
	students studentLister
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewRosterService constructs the roster service.
func NewRosterService(students studentLister, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{students: students, csv: csv, pdf: pdf, logger: logger}
}

// Export renders every student matching filter in the requested format.
func (s *RosterService) Export(ctx context.Context, format string, filter models.StudentFilter) (*CardFile, error) {
	filter.Page, filter.PageSize = 0, 0
	students, _, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	roster := export.NewRoster(rosterTitle, students, statusBand)

	var (
		data        []byte
		filename    string
		contentType string
	)
	switch strings.ToLower(format) {
	case "", "csv":
		data, err = s.csv.Render(roster)
		filename, contentType = "alunos.csv", "text/csv; charset=utf-8"
	case "pdf":
		data, err = s.pdf.Render(roster)
		filename, contentType = "alunos.pdf", "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if err != nil {
		s.logger.Sugar().Errorw("roster export failed", "format", format, "error", err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export roster")
	}
	return &CardFile{Filename: filename, ContentType: contentType, Data: data, Count: len(students)}, nil
}

func statusBand(status models.StudentStatus) [3]int {
	c := card.StatusColor(status)
	return [3]int{int(c.R), int(c.G), int(c.B)}
}
