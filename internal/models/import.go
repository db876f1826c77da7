package models

// ColumnMapping ties each student field to a spreadsheet header. An empty
// value leaves the field blank on import.
type ColumnMapping struct {
	Name               string `json:"name" form:"name"`
	RegistrationNumber string `json:"registrationNumber" form:"registrationNumber"`
	ClassName          string `json:"className" form:"className"`
	GuardianName       string `json:"guardianName" form:"guardianName"`
	SchoolName         string `json:"schoolName" form:"schoolName"`
	Status             string `json:"status" form:"status"`
	AuthorizedPeople   string `json:"authorizedPeople" form:"authorizedPeople"`
}

// Columns lists the mapped headers in field order, skipping unmapped fields.
func (m ColumnMapping) Columns() []string {
	all := []string{m.Name, m.RegistrationNumber, m.ClassName, m.GuardianName, m.SchoolName, m.Status, m.AuthorizedPeople}
	cols := make([]string, 0, len(all))
	for _, c := range all {
		if c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}
