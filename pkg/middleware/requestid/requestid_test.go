package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, incoming string) (string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var seen string
	router := gin.New()
	router.Use(Middleware())
	router.GET("/", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if incoming != "" {
		req.Header.Set(HeaderKey, incoming)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	return seen, rec.Header().Get(HeaderKey)
}

func TestMiddlewareKeepsSafeID(t *testing.T) {
	seen, header := serve(t, "batch-42_a.b")
	assert.Equal(t, "batch-42_a.b", seen)
	assert.Equal(t, seen, header)
}

func TestMiddlewareReplacesMissingOrUnsafeID(t *testing.T) {
	for _, incoming := range []string{"", "bad id\nforged", strings.Repeat("x", maxLength+1)} {
		seen, header := serve(t, incoming)
		assert.NotEqual(t, incoming, seen)
		assert.Len(t, seen, 36)
		assert.Equal(t, seen, header)
	}
}
