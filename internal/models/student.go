package models

import (
	"strings"
	"time"
)

// StudentStatus drives the header and footer colour of a card and tells
// staff how the student may leave school.
type StudentStatus string

const (
	// StatusGreen means the student may leave alone.
	StatusGreen StudentStatus = "green"
	// StatusYellow means the student leaves with the school van.
	StatusYellow StudentStatus = "yellow"
	// StatusRed means the student leaves only with a guardian.
	StatusRed StudentStatus = "red"
)

// DefaultStatus is assigned when no recognisable status is provided.
const DefaultStatus = StatusGreen

// Valid reports whether s is one of the three defined statuses.
func (s StudentStatus) Valid() bool {
	switch s {
	case StatusGreen, StatusYellow, StatusRed:
		return true
	default:
		return false
	}
}

// Label returns the Portuguese name printed in rosters.
func (s StudentStatus) Label() string {
	switch s {
	case StatusYellow:
		return "Amarelo"
	case StatusRed:
		return "Vermelho"
	default:
		return "Verde"
	}
}

// ParseStatus maps an exact status value, falling back to DefaultStatus.
func ParseStatus(raw string) StudentStatus {
	status := StudentStatus(strings.ToLower(strings.TrimSpace(raw)))
	if status.Valid() {
		return status
	}
	return DefaultStatus
}

// Student is the single record a card is drawn from. It lives only in the
// in-memory store of the running process.
type Student struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	RegistrationNumber string        `json:"registrationNumber"`
	ClassName          string        `json:"className"`
	GuardianName       string        `json:"guardianName"`
	SchoolName         string        `json:"schoolName"`
	Photo              []byte        `json:"photo,omitempty"`
	Status             StudentStatus `json:"status"`
	AuthorizedPeople   []string      `json:"authorizedPeople"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// HasPhoto reports whether an embedded photo is present.
func (s Student) HasPhoto() bool {
	return len(s.Photo) > 0
}

// Clone returns a deep copy so callers never share slices with the store.
func (s Student) Clone() Student {
	clone := s
	if s.Photo != nil {
		clone.Photo = append([]byte(nil), s.Photo...)
	}
	clone.AuthorizedPeople = append(make([]string, 0, len(s.AuthorizedPeople)), s.AuthorizedPeople...)
	return clone
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	Status   StudentStatus
	Page     int
	PageSize int
}
