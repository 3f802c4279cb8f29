package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealpulse/internal/infrastructure"
	"dealpulse/internal/shared/testutil"
)

func TestRequestID(t *testing.T) {
	t.Run("generates UUID when absent", func(t *testing.T) {
		var gotReqID, gotTraceID string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotReqID = GetReqID(r.Context())
			gotTraceID = infrastructure.GetTraceID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/v1/health", nil)
		handler.ServeHTTP(w, r)

		require.NotEmpty(t, gotReqID)
		_, err := uuid.Parse(gotReqID)
		assert.NoError(t, err, "request ID should be a UUID")
		assert.Equal(t, gotReqID, gotTraceID)
		assert.Equal(t, gotReqID, w.Header().Get("X-Request-ID"))
	})

	t.Run("honors incoming header", func(t *testing.T) {
		var gotReqID string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotReqID = GetReqID(r.Context())
		}))

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/v1/health", nil)
		r.Header.Set("X-Request-ID", "client-supplied-id")
		handler.ServeHTTP(w, r)

		assert.Equal(t, "client-supplied-id", gotReqID)
		assert.Equal(t, "client-supplied-id", w.Header().Get("X-Request-ID"))
	})
}

func TestRateLimiter(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)

	rl := NewRateLimiter(1, 1, logger)
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest("GET", "/api/v1/deals", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest("GET", "/api/v1/deals", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))

	var problem Problem
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &problem))
	assert.Equal(t, "/errors/rate-limit", problem.Type)

	assert.True(t, logHandler.ContainsMessage("rate limit exceeded"))
}

func TestTimeout(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	t.Run("fast handler unaffected", func(t *testing.T) {
		handler := Timeout(time.Second, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("done"))
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "done", w.Body.String())
	})

	t.Run("slow handler times out", func(t *testing.T) {
		release := make(chan struct{})
		handler := Timeout(30*time.Millisecond, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/underwrite", nil))
		close(release)

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)

		var problem Problem
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
		assert.Equal(t, "/errors/timeout", problem.Type)
	})

	t.Run("handler context carries the deadline", func(t *testing.T) {
		var hasDeadline bool
		handler := Timeout(time.Second, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, hasDeadline = r.Context().Deadline()
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", nil))

		assert.True(t, hasDeadline)
	})
}

func TestCORS(t *testing.T) {
	t.Run("allowed origin echoed", func(t *testing.T) {
		handler := CORS(CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/v1/deals", nil)
		r.Header.Set("Origin", "http://localhost:3000")
		handler.ServeHTTP(w, r)

		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("disallowed origin gets no allow header", func(t *testing.T) {
		handler := CORS(CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/v1/deals", nil)
		r.Header.Set("Origin", "http://evil.example.com")
		handler.ServeHTTP(w, r)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight answered directly", func(t *testing.T) {
		called := false
		handler := CORS(CORSConfig{
			AllowedOrigins: []string{"*"},
		})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		w := httptest.NewRecorder()
		r := httptest.NewRequest("OPTIONS", "/api/v1/deals", nil)
		r.Header.Set("Origin", "http://anywhere.example.com")
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.False(t, called, "preflight should not reach the handler")
		assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "300", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("credentials flag", func(t *testing.T) {
		handler := CORS(CORSConfig{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowCredentials: true,
		})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/v1/deals", nil)
		r.Header.Set("Origin", "http://localhost:3000")
		handler.ServeHTTP(w, r)

		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestProblemFromStatus(t *testing.T) {
	tests := []struct {
		status   int
		wantType string
	}{
		{http.StatusBadRequest, "/errors/bad-request"},
		{http.StatusUnauthorized, "/errors/unauthorized"},
		{http.StatusForbidden, "/errors/forbidden"},
		{http.StatusNotFound, "/errors/not-found"},
		{http.StatusConflict, "/errors/conflict"},
		{http.StatusTooManyRequests, "/errors/rate-limit"},
		{http.StatusInternalServerError, "/errors/internal"},
		{http.StatusServiceUnavailable, "/errors/service-unavailable"},
		{http.StatusGatewayTimeout, "/errors/timeout"},
		{http.StatusTeapot, "/errors/unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.wantType, func(t *testing.T) {
			problem := ProblemFromStatus(tt.status, "detail", "trace-1")

			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, tt.status, problem.Status)
			assert.Equal(t, "trace-1", problem.Trace)
		})
	}
}
