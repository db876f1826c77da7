package dto

import (
	"time"

	"github.com/noah-isme/student-card-api/internal/models"
)

// BatchJobResponse is returned after enqueueing a batch.
type BatchJobResponse struct {
	ID        string             `json:"id"`
	Status    models.BatchStatus `json:"status"`
	Progress  int                `json:"progress"`
	CardCount int                `json:"cardCount"`
}

// BatchStatusResponse exposes batch progress metadata.
type BatchStatusResponse struct {
	ID         string             `json:"id"`
	Status     models.BatchStatus `json:"status"`
	Progress   int                `json:"progress"`
	CardCount  int                `json:"cardCount"`
	ResultURL  *string            `json:"resultUrl,omitempty"`
	Error      *string            `json:"error,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
	FinishedAt *time.Time         `json:"finishedAt,omitempty"`
}
