package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	"dealpulse/internal/infrastructure"
	"dealpulse/internal/shared/testutil"
)

func TestNewOTelMiddleware_WithoutMeter(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	mw, err := NewOTelMiddleware(&infrastructure.OTelProviders{Logger: logger})
	require.NoError(t, err)
	require.NotNil(t, mw)
	assert.Nil(t, mw.BusinessMetrics())
}

func TestOTelMiddleware_Handler(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	mw, err := NewOTelMiddleware(&infrastructure.OTelProviders{
		Tracer: tp.Tracer("test"),
		Logger: logger,
	})
	require.NoError(t, err)

	var traceID string
	router := chi.NewRouter()
	router.Use(mw.Handler)
	router.Get("/api/v1/deals/{id}", func(w http.ResponseWriter, r *http.Request) {
		traceID = infrastructure.GetTraceID(r.Context())
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/deals/42", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.NotEmpty(t, traceID)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /api/v1/deals/42", span.Name())
	assert.Equal(t, oteltrace.SpanKindServer, span.SpanKind())
	assert.Equal(t, traceID, span.SpanContext().TraceID().String())
	assert.Equal(t, codes.Error, span.Status().Code)

	var gotStatus int64
	for _, attr := range span.Attributes() {
		if attr.Key == semconv.HTTPResponseStatusCodeKey {
			gotStatus = attr.Value.AsInt64()
		}
	}
	assert.Equal(t, int64(http.StatusTeapot), gotStatus)

	assert.True(t, logHandler.ContainsMessage("HTTP request completed"))
	assert.True(t, logHandler.ContainsAttr("route", "/api/v1/deals/{id}"))
	testutil.AssertLogAttr(t, logHandler, "status_code", int64(http.StatusTeapot))
}

func TestWebSocketTraceMiddleware(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)

	called := false
	handler := WebSocketTraceMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "http://localhost:8080")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	assert.True(t, called)
	assert.True(t, logHandler.ContainsMessage("WebSocket upgrade attempt"))
	assert.True(t, logHandler.ContainsAttr("origin", "http://localhost:8080"))
}

func TestBusinessMetricsContext(t *testing.T) {
	t.Run("missing from context", func(t *testing.T) {
		assert.Nil(t, GetBusinessMetricsFromContext(context.Background()))
	})

	t.Run("record without metrics does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			RecordSystemError(context.Background(), "storage", "dealstore")
		})
	})

	t.Run("nil metrics round trip", func(t *testing.T) {
		var got *infrastructure.BusinessMetrics
		handler := BusinessMetricsMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetBusinessMetricsFromContext(r.Context())
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
		assert.Nil(t, got)
	})
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{
			name:     "x-forwarded-for preferred",
			headers:  map[string]string{"X-Forwarded-For": "10.1.2.3", "X-Real-IP": "10.4.5.6"},
			expected: "10.1.2.3",
		},
		{
			name:     "x-real-ip fallback",
			headers:  map[string]string{"X-Real-IP": "10.4.5.6"},
			expected: "10.4.5.6",
		},
		{
			name:     "remote addr last",
			headers:  map[string]string{},
			expected: "192.0.2.1:1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, GetRealIP(r))
		})
	}
}
