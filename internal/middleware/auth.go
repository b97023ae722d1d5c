package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"svg-converter/internal/auth"
	"svg-converter/internal/model"
)

// DefaultAPIKeyHeader carries the token on every protected request.
const DefaultAPIKeyHeader = "api-key"

const unauthorizedMessage = "missing or invalid api key"

type credentialVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

type AuthMiddleware struct {
	verifier credentialVerifier
	header   string
}

func NewAuthMiddleware(verifier credentialVerifier, header string) *AuthMiddleware {
	header = strings.TrimSpace(header)
	if header == "" {
		header = DefaultAPIKeyHeader
	}

	return &AuthMiddleware{verifier: verifier, header: header}
}

func (m *AuthMiddleware) Header() string {
	return m.header
}

// RequireAPIKey rejects the request before the handler runs, so a refused
// request never touches the file store. Missing and invalid keys get the same
// response; only the log tells them apart.
func (m *AuthMiddleware) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get(m.header))

		claims, err := m.verifier.Verify(token)
		if err != nil {
			reason := "invalid"
			if errors.Is(err, model.ErrMissingCredential) {
				reason = "missing"
			}
			slog.Warn("api key rejected",
				"reason", reason,
				"request_id", RequestIDFromContext(r.Context()),
				"path", r.URL.Path,
				"client_ip", extractClientIP(r),
			)
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", unauthorizedMessage)
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*auth.Claims)
	return claims, ok
}
