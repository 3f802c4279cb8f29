package middleware

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealpulse/internal/shared/testutil"
)

type stubAuthService struct {
	user *UserInfo
	err  error
}

func (s *stubAuthService) ValidateToken(ctx context.Context, token string) (*UserInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func TestAuthMiddleware(t *testing.T) {
	analyst := &UserInfo{ID: "u-1", Name: "analyst", Email: "analyst@example.com", Roles: []string{"analyst"}}

	tests := []struct {
		name       string
		authHeader string
		service    *stubAuthService
		wantStatus int
		wantUser   bool
	}{
		{
			name:       "missing header",
			authHeader: "",
			service:    &stubAuthService{user: analyst},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			authHeader: "Basic dXNlcjpwYXNz",
			service:    &stubAuthService{user: analyst},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed header",
			authHeader: "Bearer",
			service:    &stubAuthService{user: analyst},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid token",
			authHeader: "Bearer bad-token",
			service:    &stubAuthService{err: errors.New("token expired")},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "valid token",
			authHeader: "Bearer good-token",
			service:    &stubAuthService{user: analyst},
			wantStatus: http.StatusOK,
			wantUser:   true,
		},
		{
			name:       "lowercase bearer accepted",
			authHeader: "bearer good-token",
			service:    &stubAuthService{user: analyst},
			wantStatus: http.StatusOK,
			wantUser:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)

			var gotUser *UserInfo
			handler := AuthMiddleware(logger, tt.service)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = GetUser(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/api/v1/deals", nil)
			if tt.authHeader != "" {
				r.Header.Set("Authorization", tt.authHeader)
			}
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantUser {
				require.NotNil(t, gotUser)
				assert.Equal(t, "u-1", gotUser.ID)
			} else {
				assert.Nil(t, gotUser)
				assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
			}
		})
	}
}

func TestGetUserWithoutAuth(t *testing.T) {
	assert.Nil(t, GetUser(context.Background()))
}

func TestSecureHeaders(t *testing.T) {
	t.Run("default headers", func(t *testing.T) {
		sh := DefaultSecureHeaders()
		handler := sh.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
		assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'self'")
		assert.Contains(t, w.Header().Get("Permissions-Policy"), "camera=()")
	})

	t.Run("hsts only over tls", func(t *testing.T) {
		sh := DefaultSecureHeaders()
		handler := sh.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		plain := httptest.NewRecorder()
		handler.ServeHTTP(plain, httptest.NewRequest("GET", "/", nil))
		assert.Empty(t, plain.Header().Get("Strict-Transport-Security"))

		secure := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "https://example.com/", nil)
		r.TLS = &tls.ConnectionState{}
		handler.ServeHTTP(secure, r)
		hsts := secure.Header().Get("Strict-Transport-Security")
		assert.Contains(t, hsts, "max-age=63072000")
		assert.Contains(t, hsts, "includeSubDomains")
		assert.Contains(t, hsts, "preload")
	})

	t.Run("websocket upgrade skipped", func(t *testing.T) {
		sh := DefaultSecureHeaders()
		handler := sh.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Upgrade", "websocket")
		handler.ServeHTTP(w, r)

		assert.Empty(t, w.Header().Get("Content-Security-Policy"))
		assert.Empty(t, w.Header().Get("X-Frame-Options"))
	})

	t.Run("dev mode relaxes csp", func(t *testing.T) {
		sh := DefaultSecureHeaders()
		sh.DevMode = true
		handler := sh.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

		csp := w.Header().Get("Content-Security-Policy")
		assert.Contains(t, csp, "'unsafe-eval'")
		assert.Empty(t, w.Header().Get("Permissions-Policy"))
	})

	t.Run("custom csp wins", func(t *testing.T) {
		sh := DefaultSecureHeaders()
		sh.ContentSecurityPolicy = "default-src 'none'"
		handler := sh.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, "default-src 'none'", w.Header().Get("Content-Security-Policy"))
	})
}

func TestAuditLog(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	user := &UserInfo{ID: "u-9", Name: "underwriter"}
	withUser := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), userCtxKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	handler := withUser(AuditLog(logger)(inner))

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/v1/deals?source=ui", strings.NewReader("{}"))
	handler.ServeHTTP(w, r)

	assert.True(t, logHandler.ContainsMessage("audit log"))
	assert.True(t, logHandler.ContainsMessage("audit log complete"))
	assert.True(t, logHandler.ContainsAttr("user_id", "u-9"))
	assert.True(t, logHandler.ContainsAttr("user_name", "underwriter"))
	testutil.AssertLogAttr(t, logHandler, "status", int64(http.StatusCreated))
}
