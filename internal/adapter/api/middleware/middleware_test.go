package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func TestAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		configured string
		sent       string
		wantStatus int
	}{
		{name: "Disabled", configured: "", sent: "", wantStatus: http.StatusTeapot},
		{name: "Valid Key", configured: "secret", sent: "secret", wantStatus: http.StatusTeapot},
		{name: "Missing Key", configured: "secret", sent: "", wantStatus: http.StatusUnauthorized},
		{name: "Wrong Key", configured: "secret", sent: "secreT", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Auth(tt.configured, logger)(okHandler())
			req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
			if tt.sent != "" {
				req.Header.Set(APIKeyHeader, tt.sent)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			require.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := Logging(logger)(okHandler())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusTeapot, rr.Code)
	require.Contains(t, buf.String(), `"status":418`)
	require.Contains(t, buf.String(), `"path":"/health"`)
}
