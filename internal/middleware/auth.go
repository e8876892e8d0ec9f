package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Caller roles. Tokens are issued by the external identity service; this
// middleware only verifies them.
const (
	RoleParticipant = "participant"
	RoleAdmin       = "admin"
)

// AuthContext describes the verified caller.
type AuthContext struct {
	ParticipantID int64
	Role          string
}

// IsAdmin reports whether the caller has the admin role.
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// claims is the token payload this service understands.
type claims struct {
	ParticipantID int64  `json:"participant_id"`
	Role          string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies bearer tokens and enforces role requirements.
type AuthMiddleware struct {
	secret []byte
	logger *zap.Logger
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(secret string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secret: []byte(secret),
		logger: logger,
	}
}

// Authenticate verifies the bearer token and stores the caller identity
// in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			m.deny(w, r, http.StatusUnauthorized, "Authentication required")
			return
		}

		token, err := jwt.ParseWithClaims(
			strings.TrimPrefix(header, "Bearer "),
			&claims{},
			func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return m.secret, nil
			},
		)
		if err != nil || !token.Valid {
			m.logger.Debug("Token verification failed",
				zap.Error(err),
				zap.String("request_id", GetRequestID(r.Context())),
			)
			m.deny(w, r, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		tokenClaims, ok := token.Claims.(*claims)
		if !ok || tokenClaims.ParticipantID <= 0 {
			m.deny(w, r, http.StatusUnauthorized, "Invalid token claims")
			return
		}

		authCtx := &AuthContext{
			ParticipantID: tokenClaims.ParticipantID,
			Role:          tokenClaims.Role,
		}
		ctx := context.WithValue(r.Context(), AuthContextKey, authCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects callers without the admin role. Must run after
// Authenticate.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r.Context())
		if authCtx == nil {
			m.deny(w, r, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !authCtx.IsAdmin() {
			m.deny(w, r, http.StatusForbidden, "Administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) deny(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error": map[string]string{
			"type":    "UNAUTHORIZED",
			"message": message,
		},
		"request_id": GetRequestID(r.Context()),
	})
}

// GetAuthContext returns the verified caller from the context, if any.
func GetAuthContext(ctx context.Context) *AuthContext {
	if authCtx, ok := ctx.Value(AuthContextKey).(*AuthContext); ok {
		return authCtx
	}
	return nil
}
