package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Trushar30/AURA-Message/internal/auth"
	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/Trushar30/AURA-Message/internal/repo"
	"github.com/Trushar30/AURA-Message/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	HttpStatusCode int             `json:"HttpStatusCode"`
	ResponseBody   json.RawMessage `json:"ResponseBody"`
	IsSuccess      bool            `json:"IsSuccess"`
	Message        string          `json:"Message"`
}

type apiRig struct {
	router   *gin.Engine
	store    *repo.MemoryStore
	verifier *auth.Verifier
	alice    model.User
	bob      model.User
	carol    model.User
}

func newAPIRig(t *testing.T) *apiRig {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repo.NewMemoryStore()
	verifier := auth.NewVerifier("handler-secret", store, zap.NewNop())
	conversations := NewConversationHandler(service.NewConversationService(store, store, store, zap.NewNop()))

	router := gin.New()
	api := router.Group("/api", RequireUser(verifier, zap.NewNop()))
	api.POST("/conversations/direct", conversations.StartDirect)
	api.POST("/conversations/group", conversations.CreateGroup)
	api.GET("/conversations/:conversationId/messages", conversations.GetRoomMessages)

	return &apiRig{
		router:   router,
		store:    store,
		verifier: verifier,
		alice:    store.PutUser(model.User{Name: "Alice"}),
		bob:      store.PutUser(model.User{Name: "Bob"}),
		carol:    store.PutUser(model.User{Name: "Carol"}),
	}
}

func (r *apiRig) do(t *testing.T, as *model.User, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token, err := r.verifier.IssueToken(as.UserID(), time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	r.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestRequireUserRejectsMissingToken(t *testing.T) {
	r := newAPIRig(t)
	code, env := r.do(t, nil, http.MethodPost, "/api/conversations/direct", `{}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, auth.ReasonMissing, env.Message)
	assert.False(t, env.IsSuccess)
}

func TestStartDirectIsStableAcrossOrder(t *testing.T) {
	r := newAPIRig(t)

	code, first := r.do(t, &r.alice, http.MethodPost, "/api/conversations/direct", `{"recipientId":"`+r.bob.UserID()+`"}`)
	require.Equal(t, http.StatusCreated, code)

	code, second := r.do(t, &r.bob, http.MethodPost, "/api/conversations/direct", `{"recipientId":"`+r.alice.UserID()+`"}`)
	require.Equal(t, http.StatusOK, code)

	var a, b model.Conversation
	require.NoError(t, json.Unmarshal(first.ResponseBody, &a))
	require.NoError(t, json.Unmarshal(second.ResponseBody, &b))
	assert.Equal(t, a.ID, b.ID)

	code, _ = r.do(t, &r.alice, http.MethodPost, "/api/conversations/direct", `{"recipientId":"`+r.alice.UserID()+`"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = r.do(t, &r.alice, http.MethodPost, "/api/conversations/direct", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetRoomMessagesForbidsOutsiders(t *testing.T) {
	r := newAPIRig(t)

	code, env := r.do(t, &r.alice, http.MethodPost, "/api/conversations/group",
		`{"name":"team","participantIds":["`+r.bob.UserID()+`"]}`)
	require.Equal(t, http.StatusCreated, code)
	var group model.Conversation
	require.NoError(t, json.Unmarshal(env.ResponseBody, &group))

	path := "/api/conversations/" + group.ID.Hex() + "/messages"
	code, _ = r.do(t, &r.bob, http.MethodGet, path+"?page=1", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = r.do(t, &r.carol, http.MethodGet, path, "")
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = r.do(t, &r.bob, http.MethodGet, path+"?page=0", "")
	assert.Equal(t, http.StatusBadRequest, code)
}
