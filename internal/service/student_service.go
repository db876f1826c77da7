package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"go.uber.org/zap"

	"github.com/noah-isme/student-card-api/internal/models"
	"github.com/noah-isme/student-card-api/internal/repository"
	"github.com/noah-isme/student-card-api/pkg/card/assets"
	appErrors "github.com/noah-isme/student-card-api/pkg/errors"
	"github.com/noah-isme/student-card-api/pkg/spreadsheet"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindMany(ctx context.Context, ids []string) ([]models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	CreateMany(ctx context.Context, students []*models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// CreateStudentRequest holds payload for creating students. Photo is a
// base64 data URL; every text field may be empty.
type CreateStudentRequest struct {
	Name               string               `json:"name" validate:"max=200"`
	RegistrationNumber string               `json:"registrationNumber" validate:"max=100"`
	ClassName          string               `json:"className" validate:"max=100"`
	GuardianName       string               `json:"guardianName" validate:"max=200"`
	SchoolName         *string              `json:"schoolName,omitempty" validate:"omitempty,max=200"`
	Photo              string               `json:"photo,omitempty"`
	Status             models.StudentStatus `json:"status" validate:"omitempty,oneof=green yellow red"`
	AuthorizedPeople   []string             `json:"authorizedPeople" validate:"omitempty,dive,notblank,max=200"`
}

// UpdateStudentRequest replaces the editable fields of a student. A nil
// Photo keeps the current one, an empty string removes it.
type UpdateStudentRequest struct {
	Name               string               `json:"name" validate:"max=200"`
	RegistrationNumber string               `json:"registrationNumber" validate:"max=100"`
	ClassName          string               `json:"className" validate:"max=100"`
	GuardianName       string               `json:"guardianName" validate:"max=200"`
	SchoolName         string               `json:"schoolName" validate:"max=200"`
	Photo              *string              `json:"photo,omitempty"`
	Status             models.StudentStatus `json:"status" validate:"omitempty,oneof=green yellow red"`
	AuthorizedPeople   []string             `json:"authorizedPeople" validate:"omitempty,dive,notblank,max=200"`
}

// StudentServiceConfig carries defaults applied to manual entries.
type StudentServiceConfig struct {
	DefaultSchoolName string
	MaxPhotoSizeBytes int64
}

// StudentService handles add, edit and delete commands on the session's
// students. It is the only writer of the student store.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
	cfg       StudentServiceConfig
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger, cfg StudentServiceConfig) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	_ = validate.RegisterValidation("notblank", validators.NotBlank)
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxPhotoSizeBytes <= 0 {
		cfg.MaxPhotoSizeBytes = 5 * 1024 * 1024
	}
	return &StudentService{repo: repo, validator: validate, logger: logger, cfg: cfg}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = total
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load student")
	}
	return student, nil
}

// Create registers a new student from the manual form.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	photo, err := s.decodePhoto(req.Photo)
	if err != nil {
		return nil, err
	}

	school := s.cfg.DefaultSchoolName
	if req.SchoolName != nil {
		school = *req.SchoolName
	}
	student := &models.Student{
		Name:               strings.TrimSpace(req.Name),
		RegistrationNumber: strings.TrimSpace(req.RegistrationNumber),
		ClassName:          strings.TrimSpace(req.ClassName),
		GuardianName:       strings.TrimSpace(req.GuardianName),
		SchoolName:         strings.TrimSpace(school),
		Photo:              photo,
		Status:             statusOrDefault(req.Status),
		AuthorizedPeople:   trimPeople(req.AuthorizedPeople),
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Sugar().Infow("student created", "student_id", student.ID, "status", student.Status)
	return s.Get(ctx, student.ID)
}

// Update replaces a student's fields in place, keeping its ID.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load student")
	}

	existing.Name = strings.TrimSpace(req.Name)
	existing.RegistrationNumber = strings.TrimSpace(req.RegistrationNumber)
	existing.ClassName = strings.TrimSpace(req.ClassName)
	existing.GuardianName = strings.TrimSpace(req.GuardianName)
	existing.SchoolName = strings.TrimSpace(req.SchoolName)
	existing.Status = statusOrDefault(req.Status)
	existing.AuthorizedPeople = trimPeople(req.AuthorizedPeople)
	if req.Photo != nil {
		photo, err := s.decodePhoto(*req.Photo)
		if err != nil {
			return nil, err
		}
		existing.Photo = photo
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, notFoundOr(err, "failed to update student")
	}
	return s.Get(ctx, id)
}

// Delete removes a student from the session.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "failed to delete student")
	}
	s.logger.Sugar().Infow("student deleted", "student_id", id)
	return nil
}

// SetPhoto stores raw uploaded image bytes as the student's photo.
func (s *StudentService) SetPhoto(ctx context.Context, id string, data []byte) (*models.Student, error) {
	if err := s.checkPhoto(data); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load student")
	}
	existing.Photo = data
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, notFoundOr(err, "failed to update student photo")
	}
	return s.Get(ctx, id)
}

// ClearPhoto removes the student's photo; the card then shows a placeholder.
func (s *StudentService) ClearPhoto(ctx context.Context, id string) (*models.Student, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load student")
	}
	existing.Photo = nil
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, notFoundOr(err, "failed to update student photo")
	}
	return s.Get(ctx, id)
}

// ImportMany appends imported rows as new students. Imported records keep
// the spreadsheet's school name, even when empty, and carry no photo.
func (s *StudentService) ImportMany(ctx context.Context, rows []spreadsheet.ImportedRow) ([]models.Student, error) {
	if len(rows) == 0 {
		return []models.Student{}, nil
	}
	records := make([]*models.Student, 0, len(rows))
	for _, row := range rows {
		records = append(records, &models.Student{
			Name:               row.Name,
			RegistrationNumber: row.RegistrationNumber,
			ClassName:          row.ClassName,
			GuardianName:       row.GuardianName,
			SchoolName:         row.SchoolName,
			Status:             statusOrDefault(row.Status),
			AuthorizedPeople:   row.AuthorizedPeople,
		})
	}
	if err := s.repo.CreateMany(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store imported students")
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	created, err := s.repo.FindMany(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load imported students")
	}
	s.logger.Sugar().Infow("students imported", "count", len(created))
	return created, nil
}

func (s *StudentService) decodePhoto(raw string) ([]byte, error) {
	data, err := assets.ParseDataURL(raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "photo must be a base64 data url")
	}
	if data == nil {
		return nil, nil
	}
	if err := s.checkPhoto(data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *StudentService) checkPhoto(data []byte) error {
	if int64(len(data)) > s.cfg.MaxPhotoSizeBytes {
		return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("photo exceeds %d bytes", s.cfg.MaxPhotoSizeBytes))
	}
	if assets.Sniff(data) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "photo must be a PNG, JPEG, GIF or WebP image")
	}
	return nil
}

func statusOrDefault(status models.StudentStatus) models.StudentStatus {
	if status.Valid() {
		return status
	}
	return models.DefaultStatus
}

func trimPeople(people []string) []string {
	trimmed := make([]string, 0, len(people))
	for _, p := range people {
		if p = strings.TrimSpace(p); p != "" {
			trimmed = append(trimmed, p)
		}
	}
	return trimmed
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
