package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/Trushar30/AURA-Message/internal/repo"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Rejection reasons carried by AuthError
const (
	ReasonMissing     = "missing"
	ReasonMalformed   = "malformed"
	ReasonExpired     = "expired"
	ReasonUnknownUser = "unknown-user"
)

// AuthError rejects a connection attempt before any state is created
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %v", e.Reason, e.Err)
	}
	return "auth " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// Reason returns the AuthError reason of err, or "" when err is not one
func Reason(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	return ""
}

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// UserLookup is the slice of the user store the verifier needs
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

type Verifier struct {
	secret []byte
	users  UserLookup
	logger *zap.Logger
	now    func() time.Time
}

func NewVerifier(secret string, users UserLookup, logger *zap.Logger) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// Verify maps a bearer credential to a known user. Store failures come back
// as plain errors so callers can tell them apart from a rejected credential.
func (v *Verifier) Verify(ctx context.Context, credential string) (*model.User, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, &AuthError{Reason: ReasonMissing}
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &AuthError{Reason: ReasonExpired, Err: err}
		}
		return nil, &AuthError{Reason: ReasonMalformed, Err: err}
	}
	if !token.Valid || claims.UserID == "" {
		return nil, &AuthError{Reason: ReasonMalformed}
	}

	user, err := v.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, &AuthError{Reason: ReasonUnknownUser, Err: err}
		}
		v.logger.Error("user lookup failed during verification",
			zap.String("user_id", claims.UserID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("verify credential: %w", err)
	}
	return user, nil
}

// IssueToken signs an HS256 token for userID valid for ttl
func (v *Verifier) IssueToken(userID string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func ParseBearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header empty")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// ExtractToken reads the credential from the token query parameter, falling
// back to the Authorization header
func ExtractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	token, err := ParseBearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return ""
	}
	return token
}
