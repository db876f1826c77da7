// Package export renders the student roster as CSV or PDF.
package export

import (
	"strings"
	"time"

	"github.com/noah-isme/student-card-api/internal/models"
)

// Column headers of the roster, in order.
var rosterHeaders = []string{"Nome", "Matrícula", "Turma", "Responsável", "Escola", "Status", "Autorizados"}

// Roster is the tabular view of the session's students.
type Roster struct {
	Title       string
	GeneratedAt time.Time
	Entries     []RosterEntry
}

// RosterEntry is one printed line. Band is the card colour of the status.
type RosterEntry struct {
	Name               string
	RegistrationNumber string
	ClassName          string
	GuardianName       string
	SchoolName         string
	Status             models.StudentStatus
	Band               [3]int
	AuthorizedPeople   []string
}

// NewRoster builds a roster; band supplies the RGB colour of each status.
func NewRoster(title string, students []models.Student, band func(models.StudentStatus) [3]int) Roster {
	entries := make([]RosterEntry, 0, len(students))
	for _, s := range students {
		entry := RosterEntry{
			Name:               s.Name,
			RegistrationNumber: s.RegistrationNumber,
			ClassName:          s.ClassName,
			GuardianName:       s.GuardianName,
			SchoolName:         s.SchoolName,
			Status:             s.Status,
			AuthorizedPeople:   s.AuthorizedPeople,
		}
		if band != nil {
			entry.Band = band(s.Status)
		}
		entries = append(entries, entry)
	}
	return Roster{Title: title, GeneratedAt: time.Now(), Entries: entries}
}

func (e RosterEntry) cells() []string {
	return []string{
		e.Name,
		e.RegistrationNumber,
		e.ClassName,
		e.GuardianName,
		e.SchoolName,
		e.Status.Label(),
		strings.Join(e.AuthorizedPeople, ", "),
	}
}
