package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	apierrors "github.com/croswell/taskmaster-api/internal/errors"
)

func TestAIHandler_UnconfiguredServiceUnavailable(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "a@x.com", "alice", "secret123")
	token := env.login(t, "a@x.com", "secret123")

	w := env.do(t, http.MethodGet, "/api/v1/ai/health", token, nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var apiErr apierrors.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	require.Equal(t, apierrors.ErrCodeServiceUnavailable, apiErr.Code)

	w = env.do(t, http.MethodPost, "/api/v1/ai/suggest", token, map[string]string{
		"text": "buy milk tomorrow",
	})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/ai/chat", token, map[string]string{
		"message": "what's my task status?",
	})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAIHandler_RequiresAuth(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/ai/suggest", "", map[string]string{
		"text": "buy milk",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
