package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/student-card-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestErrorUsesTypedStatus(t *testing.T) {
	c, w := newContext()
	Error(c, appErrors.Clone(appErrors.ErrImportFailed, "bad sheet"))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "IMPORT_FAILED", body["error"]["code"])
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestAttachment(t *testing.T) {
	c, w := newContext()
	Attachment(c, "carteirinha-ana.png", "image/png", []byte{1, 2, 3})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="carteirinha-ana.png"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "3", w.Header().Get("Content-Length"))
	assert.Equal(t, []byte{1, 2, 3}, w.Body.Bytes())
}
