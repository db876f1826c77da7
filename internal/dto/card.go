package dto

// ArchiveRequest captures POST /cards/archive and POST /batches payloads.
// An empty StudentIDs list selects every student in the session.
type ArchiveRequest struct {
	StudentIDs []string `json:"studentIds" validate:"omitempty,dive,required"`
}
