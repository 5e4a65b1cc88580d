package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteErrorMapsAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	err := fmt.Errorf("checkout: %w", ValidationError("PRODUCT_UNAVAILABLE", "product unavailable", nil))

	WriteError(rec, err)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body struct {
		Error ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "PRODUCT_UNAVAILABLE", body.Error.Code)
	require.True(t, IsKind(err, KindValidation))
}

func TestWriteErrorHidesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "connection refused")
}

func TestNewAppErrorDerivesKind(t *testing.T) {
	require.Equal(t, KindNotFound, NewAppError("X", "x", http.StatusNotFound, nil).Kind)
	require.Equal(t, KindAuthentication, NewAppError("X", "x", http.StatusForbidden, nil).Kind)
	require.Equal(t, KindInternal, NewAppError("X", "x", http.StatusInternalServerError, nil).Kind)
}
