package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("vehicle %d not found", 7)))
	assert.Equal(t, KindInvalid, KindOf(Invalid("route is inactive")))
	assert.Equal(t, KindConflict, KindOf(Conflict("vehicle already assigned")))
	assert.Equal(t, KindBadCoordinate, KindOf(BadCoordinate("lat out of range")))
	assert.Equal(t, KindUnavailable, KindOf(Unavailable("db down", errors.New("conn refused"))))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindOfWrappedError(t *testing.T) {
	inner := NotFound("staff %d not found", 3)
	wrapped := fmt.Errorf("loading dashboard: %w", inner)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindNotFound))
	assert.False(t, Is(wrapped, KindConflict))
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("conn refused")
	err := Unavailable("db down", cause)
	assert.ErrorIs(t, err, cause)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, Status(NotFound("x")))
	assert.Equal(t, http.StatusBadRequest, Status(Invalid("x")))
	assert.Equal(t, http.StatusBadRequest, Status(BadCoordinate("x")))
	assert.Equal(t, http.StatusConflict, Status(Conflict("x")))
	assert.Equal(t, http.StatusServiceUnavailable, Status(Unavailable("x", nil)))
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("plain")))
}
