package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-card-api/internal/dto"
	"github.com/noah-isme/student-card-api/internal/service"
	"github.com/noah-isme/student-card-api/pkg/archive"
	appErrors "github.com/noah-isme/student-card-api/pkg/errors"
	"github.com/noah-isme/student-card-api/pkg/response"
)

type batchService interface {
	Create(ctx context.Context, req dto.ArchiveRequest) (*dto.BatchJobResponse, error)
	GetStatus(ctx context.Context, id string) (*dto.BatchStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.BatchDownload, error)
}

// BatchHandler exposes asynchronous archive generation.
type BatchHandler struct {
	batches batchService
}

// NewBatchHandler constructs BatchHandler. A nil service disables the routes.
func NewBatchHandler(batches batchService) *BatchHandler {
	return &BatchHandler{batches: batches}
}

// Create godoc
// @Summary Queue a card archive
// @Description Snapshots the selected students, or all of them, and packages their cards in the background.
// @Tags Batches
// @Accept json
// @Produce json
// @Param payload body dto.ArchiveRequest false "Students to include"
// @Success 202 {object} response.Envelope
// @Router /batches [post]
func (h *BatchHandler) Create(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	var req dto.ArchiveRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	job, err := h.batches.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Status godoc
// @Summary Batch status
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /batches/{id} [get]
func (h *BatchHandler) Status(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	status, err := h.batches.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished batch via signed token
// @Tags Batches
// @Produce application/zip
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /batches/download/{token} [get]
func (h *BatchHandler) Download(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	download, err := h.batches.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read archive"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", download.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), archive.ContentType, download.File, nil)
}

func (h *BatchHandler) enabled(c *gin.Context) bool {
	if h.batches == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrFeatureDisabled, "batches are disabled"))
		return false
	}
	return true
}
