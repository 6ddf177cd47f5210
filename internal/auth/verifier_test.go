package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/Trushar30/AURA-Message/internal/repo"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type failingLookup struct{}

func (failingLookup) GetUser(context.Context, string) (*model.User, error) {
	return nil, errors.New("connection refused")
}

func newTestVerifier(t *testing.T) (*Verifier, model.User) {
	t.Helper()
	store := repo.NewMemoryStore()
	user := store.PutUser(model.User{Name: "Alice", Email: "alice@example.com"})
	return NewVerifier(testSecret, store, zap.NewNop()), user
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	v, user := newTestVerifier(t)
	token, err := v.IssueToken(user.UserID(), time.Hour)
	require.NoError(t, err)

	got, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.UserID(), got.UserID())
	assert.Equal(t, "Alice", got.Name)
}

func TestVerifyRejections(t *testing.T) {
	v, user := newTestVerifier(t)

	expired, err := v.IssueToken(user.UserID(), -time.Minute)
	require.NoError(t, err)

	unknown, err := v.IssueToken("64b000000000000000000000", time.Hour)
	require.NoError(t, err)

	otherKey, err := NewVerifier("other", repo.NewMemoryStore(), zap.NewNop()).IssueToken(user.UserID(), time.Hour)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: user.UserID()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		reason string
	}{
		{"empty", "", ReasonMissing},
		{"blank", "   ", ReasonMissing},
		{"garbage", "not.a.jwt", ReasonMalformed},
		{"wrong key", otherKey, ReasonMalformed},
		{"none alg", noneAlg, ReasonMalformed},
		{"expired", expired, ReasonExpired},
		{"unknown user", unknown, ReasonUnknownUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := v.Verify(context.Background(), tt.token)
			assert.Nil(t, user)
			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tt.reason, authErr.Reason)
			assert.Equal(t, tt.reason, Reason(err))
		})
	}
}

func TestVerifyStoreFailureIsNotAuthError(t *testing.T) {
	v := NewVerifier(testSecret, failingLookup{}, zap.NewNop())
	token, err := v.IssueToken("64b000000000000000000000", time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	require.Error(t, err)
	assert.Empty(t, Reason(err))
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=abc", nil)
	r.Header.Set("Authorization", "Bearer header")
	assert.Equal(t, "abc", ExtractToken(r))

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer header")
	assert.Equal(t, "header", ExtractToken(r))

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Basic xyz")
	assert.Equal(t, "", ExtractToken(r))
}
