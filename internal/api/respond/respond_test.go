package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/mycelian-crisis/internal/model"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(fmt.Errorf("%w: bad", model.ErrValidation)))
	assert.Equal(t, http.StatusNotFound, StatusFor(fmt.Errorf("%w: ec-9", model.ErrContactNotFound)))
	assert.Equal(t, http.StatusNotFound, StatusFor(model.ErrNoSafetyPlan))
	assert.Equal(t, http.StatusNotFound, StatusFor(model.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}

func TestWriteDomainErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteDomainError(rr, errors.New("dial tcp 10.0.0.1: refused"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body.Message)
}

func TestWriteDomainErrorNotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteDomainError(rr, fmt.Errorf("%w: unknown-id", model.ErrContactNotFound))

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body.Message, "unknown-id")
	assert.Equal(t, 404, body.Code)
}
