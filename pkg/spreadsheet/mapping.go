package spreadsheet

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/noah-isme/student-card-api/internal/models"
)

// ImportedRow is one data row mapped onto student fields. Imported rows
// never carry a photo.
type ImportedRow struct {
	Name               string
	RegistrationNumber string
	ClassName          string
	GuardianName       string
	SchoolName         string
	Status             models.StudentStatus
	AuthorizedPeople   []string
}

var peopleSeparators = regexp.MustCompile(`[,;|]`)

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// SuggestMapping guesses which header feeds each field. Each header is
// assigned to at most one field, tested in field order; when several
// headers match the same field the last one wins.
func SuggestMapping(headers []string) models.ColumnMapping {
	var m models.ColumnMapping
	for _, header := range headers {
		h := strings.ToLower(header)
		switch {
		case (strings.Contains(h, "nome") && strings.Contains(h, "aluno")) || h == "nome":
			m.Name = header
		case containsAny(h, "matrícula", "matricula", "registro"):
			m.RegistrationNumber = header
		case containsAny(h, "turma", "classe", "sala"):
			m.ClassName = header
		case containsAny(h, "responsável", "responsavel", "guardião"):
			m.GuardianName = header
		case containsAny(h, "escola", "instituição", "colégio"):
			m.SchoolName = header
		case containsAny(h, "status", "situação", "cor"):
			m.Status = header
		case containsAny(h, "autorizado", "pessoas", "autorizados"):
			m.AuthorizedPeople = header
		}
	}
	return m
}

// NormalizeStatus maps free text onto a status, case-insensitively.
// Anything unrecognised is green.
func NormalizeStatus(raw string) models.StudentStatus {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case containsAny(v, "verde", "green") || v == "1":
		return models.StatusGreen
	case containsAny(v, "amarelo", "yellow") || v == "2":
		return models.StatusYellow
	case containsAny(v, "vermelho", "red") || v == "3":
		return models.StatusRed
	default:
		return models.DefaultStatus
	}
}

// SplitPeople splits a cell on ',', ';' or '|', dropping blank names.
func SplitPeople(raw string) []string {
	people := make([]string, 0)
	for _, p := range peopleSeparators.Split(raw, -1) {
		if p = strings.TrimSpace(p); p != "" {
			people = append(people, p)
		}
	}
	return people
}

// Records maps every data row through mapping.
func (s *Sheet) Records(mapping models.ColumnMapping) ([]ImportedRow, error) {
	if strings.TrimSpace(mapping.Name) == "" {
		return nil, ErrNameColumnRequired
	}

	index := make(map[string]int, len(s.Headers))
	for i, h := range s.Headers {
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}
	for _, col := range mapping.Columns() {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
		}
	}

	cell := func(row []string, column string) string {
		if column == "" {
			return ""
		}
		i := index[column]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]ImportedRow, 0, len(s.Rows))
	for _, row := range s.Rows {
		status := models.DefaultStatus
		if mapping.Status != "" {
			status = NormalizeStatus(cell(row, mapping.Status))
		}
		records = append(records, ImportedRow{
			Name:               cell(row, mapping.Name),
			RegistrationNumber: cell(row, mapping.RegistrationNumber),
			ClassName:          cell(row, mapping.ClassName),
			GuardianName:       cell(row, mapping.GuardianName),
			SchoolName:         cell(row, mapping.SchoolName),
			Status:             status,
			AuthorizedPeople:   SplitPeople(cell(row, mapping.AuthorizedPeople)),
		})
	}
	return records, nil
}
