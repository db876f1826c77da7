package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/noah-isme/student-card-api/internal/dto"
	"github.com/noah-isme/student-card-api/internal/models"
	appErrors "github.com/noah-isme/student-card-api/pkg/errors"
	"github.com/noah-isme/student-card-api/pkg/spreadsheet"
)

type studentImporter interface {
	ImportMany(ctx context.Context, rows []spreadsheet.ImportedRow) ([]models.Student, error)
}

// ImportService turns uploaded spreadsheets into students.
type ImportService struct {
	students studentImporter
	maxSize  int64
	logger   *zap.Logger
}

// NewImportService constructs the import service.
func NewImportService(students studentImporter, maxSize int64, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}
	return &ImportService{students: students, maxSize: maxSize, logger: logger}
}

// Preview parses the file and suggests a column mapping without importing.
func (s *ImportService) Preview(ctx context.Context, filename string, r io.Reader) (*dto.ImportPreviewResponse, error) {
	sheet, err := s.parse(ctx, filename, r)
	if err != nil {
		return nil, err
	}
	return &dto.ImportPreviewResponse{
		Headers:          sheet.Headers,
		Preview:          sheet.Preview(),
		TotalRows:        len(sheet.Rows),
		SuggestedMapping: spreadsheet.SuggestMapping(sheet.Headers),
	}, nil
}

// Import parses the file, maps every data row through mapping and appends
// the result to the session. A nil mapping uses the suggested one.
func (s *ImportService) Import(ctx context.Context, filename string, r io.Reader, mapping *models.ColumnMapping) (*dto.ImportResponse, error) {
	sheet, err := s.parse(ctx, filename, r)
	if err != nil {
		return nil, err
	}
	m := spreadsheet.SuggestMapping(sheet.Headers)
	if mapping != nil {
		m = *mapping
	}
	rows, err := sheet.Records(m)
	if err != nil {
		return nil, importFailed(err)
	}
	created, err := s.students.ImportMany(ctx, rows)
	if err != nil {
		return nil, err
	}
	s.logger.Sugar().Infow("spreadsheet imported", "file", filename, "rows", len(created))
	return &dto.ImportResponse{Imported: len(created), Students: created}, nil
}

func (s *ImportService) parse(ctx context.Context, filename string, r io.Reader) (*spreadsheet.Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	if int64(len(data)) > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("spreadsheet exceeds %d bytes", s.maxSize))
	}
	sheet, err := spreadsheet.Parse(filename, bytes.NewReader(data))
	if err != nil {
		s.logger.Sugar().Warnw("spreadsheet rejected", "file", filename, "error", err)
		return nil, importFailed(err)
	}
	return sheet, nil
}

func importFailed(err error) error {
	switch {
	case errors.Is(err, spreadsheet.ErrTooFewRows):
		return appErrors.WrapAs(appErrors.ErrImportFailed, err, "spreadsheet must contain a header and at least one data row")
	case errors.Is(err, spreadsheet.ErrUnsupportedFormat):
		return appErrors.WrapAs(appErrors.ErrImportFailed, err, "spreadsheet could not be read; use .xlsx or .csv")
	case errors.Is(err, spreadsheet.ErrNameColumnRequired):
		return appErrors.WrapAs(appErrors.ErrImportFailed, err, "a column must be mapped to the student name")
	case errors.Is(err, spreadsheet.ErrUnknownColumn):
		return appErrors.WrapAs(appErrors.ErrImportFailed, err, "column mapping does not match the spreadsheet headers")
	default:
		return appErrors.WrapAs(appErrors.ErrImportFailed, err, "")
	}
}
