package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("dial tcp: connection refused") }

func readiness(t *testing.T, h *Handler) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestLiveness(t *testing.T) {
	h := NewHandler()
	h.Register("postgres", down)

	rec := httptest.NewRecorder()
	h.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"up"`)
}

func TestReadiness_AllUp(t *testing.T) {
	h := NewHandler()
	h.Register("postgres", up)
	h.RegisterOptional("redis", up)

	code, resp := readiness(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestReadiness_RequiredDown(t *testing.T) {
	h := NewHandler()
	h.Register("postgres", down)
	h.RegisterOptional("redis", up)

	code, resp := readiness(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusDown, resp.Status)
	assert.Equal(t, StatusDown, resp.Checks["postgres"].Status)
	assert.Contains(t, resp.Checks["postgres"].Error, "connection refused")
}

func TestReadiness_OptionalDownIsDegraded(t *testing.T) {
	h := NewHandler()
	h.Register("postgres", up)
	h.RegisterOptional("redis", down)

	code, resp := readiness(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.True(t, resp.Checks["redis"].Optional)
}

func TestReadiness_NoChecks(t *testing.T) {
	code, resp := readiness(t, NewHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, resp.Status)
}
