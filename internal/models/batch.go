package models

import "time"

// BatchStatus reflects asynchronous archive generation state.
type BatchStatus string

const (
	BatchStatusQueued   BatchStatus = "QUEUED"
	BatchStatusRunning  BatchStatus = "RUNNING"
	BatchStatusFinished BatchStatus = "FINISHED"
	BatchStatusFailed   BatchStatus = "FAILED"
)

// BatchJob tracks one background packaging run. Students holds a snapshot
// taken when the batch was requested, so later edits do not leak into it.
type BatchJob struct {
	ID           string      `json:"id"`
	Status       BatchStatus `json:"status"`
	Progress     int         `json:"progress"`
	CardCount    int         `json:"cardCount"`
	ResultPath   string      `json:"-"`
	ResultURL    *string     `json:"resultUrl,omitempty"`
	ErrorMessage *string     `json:"error,omitempty"`
	Students     []Student   `json:"-"`
	CreatedAt    time.Time   `json:"createdAt"`
	StartedAt    *time.Time  `json:"startedAt,omitempty"`
	FinishedAt   *time.Time  `json:"finishedAt,omitempty"`
}
