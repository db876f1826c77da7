package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	typed := Clone(ErrNotFound, "student not found")
	wrapped := fmt.Errorf("lookup: %w", typed)

	got := FromError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, "NOT_FOUND", got.Code)
	assert.Equal(t, http.StatusNotFound, got.Status)
	assert.Equal(t, "student not found", got.Message)
}

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	got := FromError(stderrors.New("boom"))
	require.NotNil(t, got)
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Nil(t, FromError(nil))
}

func TestIsMatchesByCode(t *testing.T) {
	cause := stderrors.New("zip: write failed")
	err := WrapAs(ErrPackagingFailed, cause, "")

	assert.True(t, stderrors.Is(err, ErrPackagingFailed))
	assert.True(t, stderrors.Is(err, cause))
	assert.False(t, stderrors.Is(err, ErrRenderFailed))
	assert.Equal(t, ErrPackagingFailed.Message+": zip: write failed", err.Error())
}
