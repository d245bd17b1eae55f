package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/staffdeskhq/staffdesk/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	claims jwtx.Claims
	err    error
}

func (s stubVerifier) VerifyAccessToken(raw string) (jwtx.Claims, error) {
	return s.claims, s.err
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing header", "", ""},
		{"valid bearer", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", ""},
		{"bare scheme", "Bearer ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, BearerToken(tt.header))
		})
	}
}

func TestAuthnMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := r.Context().Value(CtxKeyUserID).(string)
		role, _ := r.Context().Value(CtxKeyRole).(string)
		w.Header().Set("X-Test-User", userID)
		w.Header().Set("X-Test-Role", role)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token passes claims through context", func(t *testing.T) {
		v := stubVerifier{claims: jwtx.Claims{Role: "MANAGER"}}
		v.claims.Subject = "user-7"
		handler := AuthnMiddleware(v)(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer sometoken")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "user-7", rec.Header().Get("X-Test-User"))
		require.Equal(t, "MANAGER", rec.Header().Get("X-Test-Role"))
	})

	t.Run("missing header rejected", func(t *testing.T) {
		handler := AuthnMiddleware(stubVerifier{})(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("verifier failure rejected", func(t *testing.T) {
		handler := AuthnMiddleware(stubVerifier{err: errors.New("bad token")})(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer sometoken")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
