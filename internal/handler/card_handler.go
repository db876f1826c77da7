package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-card-api/internal/dto"
	"github.com/noah-isme/student-card-api/internal/service"
	"github.com/noah-isme/student-card-api/pkg/response"
)

// CardCountHeader carries the number of cards in a generated archive.
const CardCountHeader = "X-Card-Count"

type cardService interface {
	RenderCard(ctx context.Context, id string) (*service.CardFile, error)
	Archive(ctx context.Context, ids []string) (*service.CardFile, error)
}

// CardHandler serves rendered cards.
type CardHandler struct {
	cards cardService
}

// NewCardHandler constructs CardHandler.
func NewCardHandler(cards cardService) *CardHandler {
	return &CardHandler{cards: cards}
}

// Card godoc
// @Summary Download a student's card
// @Tags Cards
// @Produce png
// @Param id path string true "Student ID"
// @Success 200 {file} binary
// @Router /students/{id}/card.png [get]
func (h *CardHandler) Card(c *gin.Context) {
	file, err := h.cards.RenderCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// Archive godoc
// @Summary Download cards as a ZIP archive
// @Description An empty or missing studentIds list packages every student.
// @Tags Cards
// @Accept json
// @Produce application/zip
// @Param payload body dto.ArchiveRequest false "Students to include"
// @Success 200 {file} binary
// @Router /cards/archive [post]
func (h *CardHandler) Archive(c *gin.Context) {
	var req dto.ArchiveRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.cards.Archive(c.Request.Context(), req.StudentIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header(CardCountHeader, strconv.Itoa(file.Count))
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
