package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-card-api/internal/models"
	"github.com/noah-isme/student-card-api/internal/service"
	"github.com/noah-isme/student-card-api/pkg/response"
)

type rosterService interface {
	Export(ctx context.Context, format string, filter models.StudentFilter) (*service.CardFile, error)
}

// RosterHandler exports the student list.
type RosterHandler struct {
	roster rosterService
}

// NewRosterHandler constructs RosterHandler.
func NewRosterHandler(roster rosterService) *RosterHandler {
	return &RosterHandler{roster: roster}
}

// Export godoc
// @Summary Export the student roster
// @Tags Students
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param search query string false "Search by name or registration number"
// @Param status query string false "Filter by status"
// @Success 200 {file} binary
// @Router /students/export [get]
func (h *RosterHandler) Export(c *gin.Context) {
	file, err := h.roster.Export(c.Request.Context(), c.DefaultQuery("format", "csv"), filterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
