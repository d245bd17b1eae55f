package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/staffdeskhq/staffdesk/pkg/jwtx"
	"github.com/staffdeskhq/staffdesk/pkg/slogx"
)

// AccessVerifier verifies a raw bearer token as an access token. Anything
// else (refresh, mfa, garbage) must return an error.
type AccessVerifier interface {
	VerifyAccessToken(raw string) (jwtx.Claims, error)
}

// BearerToken extracts the bearer token from an Authorization header value.
// Returns "" for a missing or non-Bearer header.
func BearerToken(authorization string) string {
	if authorization == "" || !strings.HasPrefix(authorization, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer"))
}

// AuthnMiddleware rejects requests without a valid access token and injects
// the subject id and role into the request context.
func AuthnMiddleware(v AccessVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := BearerToken(r.Header.Get("Authorization"))
			if raw == "" {
				writeBearerError(w, "missing bearer token")
				return
			}

			claims, err := v.VerifyAccessToken(raw)
			if err != nil {
				log.Warn("access token verification failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = context.WithValue(ctx, CtxKeyUserID, claims.Subject)
			ctx = context.WithValue(ctx, CtxKeyRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
