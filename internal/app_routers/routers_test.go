package approuters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Trushar30/AURA-Message/internal/configuration"
	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContainer(t *testing.T) *configuration.Container {
	t.Helper()
	t.Setenv("AURA_AUTH_JWT_SECRET", "router-secret")
	t.Setenv("AURA_STORE_DRIVER", configuration.StoreMemory)

	cfg, err := configuration.LoadConfig("")
	require.NoError(t, err)
	container, err := configuration.BuildContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })
	return container
}

func TestPublicRoutes(t *testing.T) {
	router := NewRouter(newTestContainer(t))

	for _, path := range []string{"/", "/healthz", "/cf/api/monitor/stats"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "aura_gateway_connections"))
}

func TestPresenceRoutesRequireAuth(t *testing.T) {
	container := newTestContainer(t)
	router := NewRouter(container)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cf/api/presence/online", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	store, ok := container.Store.Users.(interface {
		PutUser(model.User) model.User
	})
	require.True(t, ok)
	alice := store.PutUser(model.User{Name: "Alice"})
	token, err := container.Verifier.IssueToken(alice.UserID(), time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/cf/api/presence/"+alice.UserID(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		ResponseBody model.Presence `json:"ResponseBody"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, model.StatusOffline, body.ResponseBody.Status)
}
