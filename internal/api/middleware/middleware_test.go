package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestID(t *testing.T) {
	t.Run("generates id", func(t *testing.T) {
		var seen string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("keeps incoming id", func(t *testing.T) {
		var seen string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("replaces malformed id", func(t *testing.T) {
		for _, bad := range []string{"has space", "line\nbreak", strings.Repeat("a", 129)} {
			var seen string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, bad)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.NotEqual(t, bad, seen)
			assert.Len(t, seen, 36, "expected a generated uuid")
		}
	})
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	handler := RequestID(AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/add_feedback", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/add_feedback", fields["path"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, int64(len("short and stout")), fields["bytes"])
	assert.Equal(t, "10.0.0.1", fields["remote_addr"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestAccessLog_ServerErrorLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	handler := AccessLog(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}

func TestMaxBodyBytes(t *testing.T) {
	t.Run("declared length over limit", func(t *testing.T) {
		called := false
		handler := MaxBodyBytes(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("this body is too long")))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, rec.Body.String(), "BODY_TOO_LARGE")
		assert.False(t, called)
	})

	t.Run("unknown length is capped while reading", func(t *testing.T) {
		var readErr error
		handler := MaxBodyBytes(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, readErr = io.ReadAll(r.Body)
		}))

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("this body is too long"))
		req.ContentLength = -1
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Error(t, readErr)
	})
}

func TestSentryMiddleware_PassesThroughWithoutClient(t *testing.T) {
	handler := SentryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestSpanStatus(t *testing.T) {
	assert.Equal(t, sentry.SpanStatusOK, spanStatus(http.StatusOK))
	assert.Equal(t, sentry.SpanStatusInvalidArgument, spanStatus(http.StatusBadRequest))
	assert.Equal(t, sentry.SpanStatusNotFound, spanStatus(http.StatusNotFound))
	assert.Equal(t, sentry.SpanStatusResourceExhausted, spanStatus(http.StatusRequestEntityTooLarge))
	assert.Equal(t, sentry.SpanStatusUnavailable, spanStatus(http.StatusServiceUnavailable))
	assert.Equal(t, sentry.SpanStatusInternalError, spanStatus(http.StatusInternalServerError))
}
