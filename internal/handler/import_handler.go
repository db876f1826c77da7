package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-card-api/internal/dto"
	"github.com/noah-isme/student-card-api/internal/models"
	appErrors "github.com/noah-isme/student-card-api/pkg/errors"
	"github.com/noah-isme/student-card-api/pkg/response"
)

type importService interface {
	Preview(ctx context.Context, filename string, r io.Reader) (*dto.ImportPreviewResponse, error)
	Import(ctx context.Context, filename string, r io.Reader, mapping *models.ColumnMapping) (*dto.ImportResponse, error)
}

// ImportHandler accepts spreadsheet uploads.
type ImportHandler struct {
	imports importService
}

// NewImportHandler constructs ImportHandler.
func NewImportHandler(imports importService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// Preview godoc
// @Summary Preview a spreadsheet
// @Description Returns the headers, the first rows and a suggested column mapping.
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet (.xlsx or .csv)"
// @Success 200 {object} response.Envelope
// @Router /imports/preview [post]
func (h *ImportHandler) Preview(c *gin.Context) {
	file, header, err := formFile(c, "file")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	preview, err := h.imports.Preview(c.Request.Context(), header.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Import godoc
// @Summary Import students from a spreadsheet
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet (.xlsx or .csv)"
// @Param mapping formData string false "Column mapping as JSON; the suggested mapping is used when omitted"
// @Success 201 {object} response.Envelope
// @Router /imports [post]
func (h *ImportHandler) Import(c *gin.Context) {
	var mapping *models.ColumnMapping
	if raw := strings.TrimSpace(c.PostForm("mapping")); raw != "" {
		mapping = &models.ColumnMapping{}
		if err := json.Unmarshal([]byte(raw), mapping); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "mapping must be a JSON object"))
			return
		}
	}

	file, header, err := formFile(c, "file")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	result, err := h.imports.Import(c.Request.Context(), header.Filename, file, mapping)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
