package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/student-card-api/internal/models"
)

var (
	// ErrNotFound is returned when no record matches the requested ID.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateID is returned when a record is created with an ID already in use.
	ErrDuplicateID = errors.New("repository: duplicate id")
)

// StudentStore is the application state of one card session: the ordered
// collection of students. It replaces shared UI state and is handed to every
// service that needs it. Records go in and out as deep copies.
type StudentStore struct {
	mu    sync.RWMutex
	order []string
	items map[string]models.Student
	now   func() time.Time
}

// NewStudentStore constructs an empty store.
func NewStudentStore() *StudentStore {
	return &StudentStore{
		items: make(map[string]models.Student),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// List returns students in insertion order matching the filter, plus the
// total number of matches. PageSize <= 0 returns every match.
func (r *StudentStore) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matches := make([]models.Student, 0, len(r.order))
	for _, id := range r.order {
		student := r.items[id]
		if filter.Status != "" && student.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(student.Name), search) &&
			!strings.Contains(strings.ToLower(student.RegistrationNumber), search) {
			continue
		}
		matches = append(matches, student)
	}

	total := len(matches)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.PageSize
		if start > total {
			start = total
		}
		end := start + filter.PageSize
		if end > total {
			end = total
		}
		matches = matches[start:end]
	}

	result := make([]models.Student, len(matches))
	for i, s := range matches {
		result[i] = s.Clone()
	}
	return result, total, nil
}

// FindByID returns a copy of the student with the given ID.
func (r *StudentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	student, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := student.Clone()
	return &clone, nil
}

// FindMany returns the requested students in the order of ids. An empty id
// list returns every student. Any unknown ID fails the whole lookup.
func (r *StudentStore) FindMany(ctx context.Context, ids []string) ([]models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(ids) == 0 {
		ids = r.order
	}
	result := make([]models.Student, 0, len(ids))
	for _, id := range ids {
		student, ok := r.items[id]
		if !ok {
			return nil, ErrNotFound
		}
		result = append(result, student.Clone())
	}
	return result, nil
}

// Create inserts a student, assigning an ID and timestamps.
func (r *StudentStore) Create(ctx context.Context, student *models.Student) error {
	return r.CreateMany(ctx, []*models.Student{student})
}

// CreateMany inserts all students or none of them.
func (r *StudentStore) CreateMany(ctx context.Context, students []*models.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(students))
	for _, s := range students {
		if s.ID == "" {
			continue
		}
		if _, exists := r.items[s.ID]; exists {
			return ErrDuplicateID
		}
		if _, dup := seen[s.ID]; dup {
			return ErrDuplicateID
		}
		seen[s.ID] = struct{}{}
	}

	now := r.now()
	for _, s := range students {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.CreatedAt = now
		s.UpdatedAt = now
		r.items[s.ID] = s.Clone()
		r.order = append(r.order, s.ID)
	}
	return nil
}

// Update replaces the stored student with the same ID, keeping CreatedAt.
func (r *StudentStore) Update(ctx context.Context, student *models.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[student.ID]
	if !ok {
		return ErrNotFound
	}
	student.CreatedAt = existing.CreatedAt
	student.UpdatedAt = r.now()
	r.items[student.ID] = student.Clone()
	return nil
}

// Delete removes a student. The ID is never handed out again because new
// IDs are random UUIDs.
func (r *StudentStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of students in the session.
func (r *StudentStore) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
