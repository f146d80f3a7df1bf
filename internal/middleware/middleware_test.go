package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgboard/internal/infrastructure"
	"esgboard/internal/shared/testutil"
)

// TestRequestID verifies ID generation, header propagation, and that the ID
// is visible through every context accessor the rest of the stack uses.
func TestRequestID(t *testing.T) {
	tests := []struct {
		name          string
		inboundHeader string
	}{
		{name: "generates_uuid_when_header_missing"},
		{name: "honors_inbound_header", inboundHeader: "client-supplied-id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotOwn, gotChi, gotTrace string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotOwn = GetReqID(r.Context())
				gotChi = middleware.GetReqID(r.Context())
				gotTrace = infrastructure.GetTraceID(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/api/dataset", nil)
			if tt.inboundHeader != "" {
				req.Header.Set("X-Request-ID", tt.inboundHeader)
			}
			rec := httptest.NewRecorder()

			RequestID(next).ServeHTTP(rec, req)

			require.NotEmpty(t, gotOwn)
			assert.Equal(t, gotOwn, gotChi, "chi accessor must see the same ID")
			assert.Equal(t, gotOwn, gotTrace, "trace_id must follow the request ID")
			assert.Equal(t, gotOwn, rec.Header().Get("X-Request-ID"))

			if tt.inboundHeader != "" {
				assert.Equal(t, tt.inboundHeader, gotOwn)
			} else {
				_, err := uuid.Parse(gotOwn)
				assert.NoError(t, err, "generated ID should be a UUID")
			}
		})
	}
}

func TestStructuredLogger(t *testing.T) {
	logger, capture := testutil.NewTestLogger(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("done"))
	})

	req := httptest.NewRequest("POST", "/api/dataset/synthetic", nil)
	rec := httptest.NewRecorder()

	RequestID(StructuredLogger(logger)(next)).ServeHTTP(rec, req)

	assert.True(t, capture.ContainsMessage("request started"))
	assert.True(t, capture.ContainsMessage("request completed"))

	for _, r := range capture.GetRecords() {
		if r.Message != "request completed" {
			continue
		}
		assert.Equal(t, int64(http.StatusCreated), r.Attrs["status"])
		assert.Equal(t, int64(4), r.Attrs["bytes"])
		assert.Equal(t, "/api/dataset/synthetic", r.Attrs["path"])
		assert.NotEmpty(t, r.Attrs["trace_id"], "completion line should carry the trace ID")
		return
	}
	t.Fatal("request completed record not found")
}

func TestRecoverer(t *testing.T) {
	logger, capture := testutil.NewTestLogger(t)

	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("chart renderer exploded")
	})

	req := httptest.NewRequest("GET", "/api/categories/environmental/kpis", nil)
	rec := httptest.NewRecorder()

	RequestID(Recoverer(logger)(panicking)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "/errors/internal-server-error")
	assert.Contains(t, body, `"trace_id":"`+rec.Header().Get("X-Request-ID"))

	assert.True(t, capture.ContainsMessage("panic recovered"))
}

func TestRateLimiter(t *testing.T) {
	logger, capture := testutil.NewTestLogger(t)

	rl := NewRateLimiter(1, 2, logger)
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Burst of 2 passes, the third immediate request is rejected
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/api/categories", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	req := httptest.NewRequest("GET", "/api/categories", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "/errors/rate-limit-exceeded")
	assert.True(t, capture.ContainsMessage("rate limit exceeded"))
}

func TestTimeout(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("fast_handler_passes", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		})

		req := httptest.NewRequest("GET", "/api/dataset", nil)
		rec := httptest.NewRecorder()
		Timeout(time.Second, logger)(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
	})

	t.Run("slow_handler_times_out", func(t *testing.T) {
		// Blocks until the deadline fires, without writing
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})

		req := httptest.NewRequest("GET", "/api/categories/social/export/png", nil)
		rec := httptest.NewRecorder()
		Timeout(50*time.Millisecond, logger)(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
		assert.Contains(t, rec.Body.String(), "/errors/request-timeout")
	})
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name           string
		config         CORSConfig
		origin         string
		method         string
		wantStatus     int
		wantAllowedHdr string
	}{
		{
			name:           "allowed_origin_is_echoed",
			config:         CORSConfig{AllowedOrigins: []string{"https://dashboard.example.com"}},
			origin:         "https://dashboard.example.com",
			method:         "GET",
			wantStatus:     http.StatusOK,
			wantAllowedHdr: "https://dashboard.example.com",
		},
		{
			name:           "wildcard_allows_any_origin",
			config:         CORSConfig{AllowedOrigins: []string{"*"}},
			origin:         "https://other.example.com",
			method:         "GET",
			wantStatus:     http.StatusOK,
			wantAllowedHdr: "https://other.example.com",
		},
		{
			name:           "unlisted_origin_gets_no_header",
			config:         CORSConfig{AllowedOrigins: []string{"https://dashboard.example.com"}},
			origin:         "https://evil.example.com",
			method:         "GET",
			wantStatus:     http.StatusOK,
			wantAllowedHdr: "",
		},
		{
			name:           "preflight_short_circuits",
			config:         CORSConfig{AllowedOrigins: []string{"*"}},
			origin:         "https://dashboard.example.com",
			method:         "OPTIONS",
			wantStatus:     http.StatusNoContent,
			wantAllowedHdr: "https://dashboard.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/api/categories", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			CORS(tt.config)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllowedHdr, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "300", rec.Header().Get("Access-Control-Max-Age"))
			assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "GET")

			if tt.method == "OPTIONS" {
				assert.False(t, nextCalled, "preflight must not reach the handler")
			} else {
				assert.True(t, nextCalled)
			}
		})
	}

	t.Run("credentials_flag_sets_header", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
		req := httptest.NewRequest("GET", "/api/categories", nil)
		req.Header.Set("Origin", "https://dashboard.example.com")
		rec := httptest.NewRecorder()

		CORS(CORSConfig{AllowCredentials: true})(next).ServeHTTP(rec, req)

		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestSecureHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("defaults_on_plain_http", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/dataset", nil)
		rec := httptest.NewRecorder()

		DefaultSecureHeaders().Handler(next).ServeHTTP(rec, req)

		// HSTS only applies to TLS connections
		assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "1; mode=block", rec.Header().Get("X-XSS-Protection"))
		assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))

		csp := rec.Header().Get("Content-Security-Policy")
		assert.Contains(t, csp, "default-src 'self'")
		assert.Contains(t, csp, "connect-src 'self' ws: wss:", "websocket channel must stay reachable")
		assert.Contains(t, rec.Header().Get("Permissions-Policy"), "camera=()")
	})

	t.Run("dev_mode_relaxes_policies", func(t *testing.T) {
		sh := DefaultSecureHeaders()
		sh.DevMode = true

		req := httptest.NewRequest("GET", "/api/dataset", nil)
		rec := httptest.NewRecorder()
		sh.Handler(next).ServeHTTP(rec, req)

		assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=63072000")
		assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
		assert.Empty(t, rec.Header().Get("Permissions-Policy"))
	})

	t.Run("websocket_upgrade_skipped", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ws", nil)
		req.Header.Set("Upgrade", "websocket")
		rec := httptest.NewRecorder()

		DefaultSecureHeaders().Handler(next).ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("X-Frame-Options"))
		assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
	})
}

func TestAuditLog(t *testing.T) {
	t.Run("reads_pass_unlogged", func(t *testing.T) {
		logger, capture := testutil.NewTestLogger(t)

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest("GET", "/api/categories", nil)
		rec := httptest.NewRecorder()
		AuditLog(logger)(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, capture.GetRecords())
	})

	t.Run("mutations_are_audited", func(t *testing.T) {
		logger, capture := testutil.NewTestLogger(t)

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})

		req := httptest.NewRequest("POST", "/api/dataset/upload?source=ui", nil)
		rec := httptest.NewRecorder()
		AuditLog(logger)(next).ServeHTTP(rec, req)

		require.True(t, capture.ContainsMessage("audit log"))
		require.True(t, capture.ContainsMessage("audit log complete"))

		for _, r := range capture.GetRecords() {
			switch r.Message {
			case "audit log":
				assert.Equal(t, "dataset_mutation", r.Attrs["event_type"])
				assert.Equal(t, "POST", r.Attrs["method"])
				assert.Equal(t, "/api/dataset/upload", r.Attrs["path"])
			case "audit log complete":
				assert.Equal(t, "dataset_mutation_result", r.Attrs["event_type"])
				assert.Equal(t, int64(http.StatusCreated), r.Attrs["status"])
			}
		}
	})
}

func TestGetRequestID(t *testing.T) {
	t.Run("prefers_request_id_key", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), RequestIDKey, "req-123")
		assert.Equal(t, "req-123", GetRequestID(ctx))
	})

	t.Run("falls_back_to_trace_id", func(t *testing.T) {
		ctx := infrastructure.WithTraceID(context.Background(), "trace-456")
		assert.Equal(t, "trace-456", GetRequestID(ctx))
	})

	t.Run("empty_without_either", func(t *testing.T) {
		assert.Equal(t, "", GetRequestID(context.Background()))
	})
}

func TestRecovererDoesNotInterceptCleanRequests(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fine"))
	})

	req := httptest.NewRequest("GET", "/api/dataset", nil)
	rec := httptest.NewRecorder()
	Recoverer(logger)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fine", rec.Body.String())
	assert.False(t, strings.Contains(rec.Body.String(), "errors"))
}
