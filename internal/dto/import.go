package dto

import "github.com/noah-isme/student-card-api/internal/models"

// ImportPreviewResponse is returned by POST /imports/preview.
type ImportPreviewResponse struct {
	Headers          []string             `json:"headers"`
	Preview          [][]string           `json:"preview"`
	TotalRows        int                  `json:"totalRows"`
	SuggestedMapping models.ColumnMapping `json:"suggestedMapping"`
}

// ImportResponse is returned by POST /imports.
type ImportResponse struct {
	Imported int              `json:"imported"`
	Students []models.Student `json:"students"`
}
