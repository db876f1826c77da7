package handler

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/student-card-api/pkg/errors"
)

var payloadValidator = validator.New()

// bindOptionalJSON decodes the request body into dst when one is present and
// validates it. An empty body leaves dst untouched.
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(dst); err != nil && err != io.EOF {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
		}
	}
	if err := payloadValidator.Struct(dst); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
	}
	return nil
}

// formFile opens the multipart file stored under field.
func formFile(c *gin.Context, field string) (multipart.File, *multipart.FileHeader, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, field+" file is required")
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read "+field)
	}
	return file, header, nil
}
