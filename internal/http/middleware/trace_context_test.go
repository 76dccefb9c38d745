package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/audience-backend/internal/platform/ctxutil"
)

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name          string
		requestID     string
		wantRequestID string
	}{
		{"kept", "req-42.a:b_c", "req-42.a:b_c"},
		{"trimmed", "  req-7 ", "req-7"},
		{"minted when missing", "", ""},
		{"minted when unsafe", "bad id\nInjected: 1", ""},
		{"minted when too long", strings.Repeat("a", maxInboundIDLen+1), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *ctxutil.TraceData
			r := gin.New()
			r.Use(AttachTraceContext())
			r.GET("/x", func(c *gin.Context) {
				seen = ctxutil.GetTraceData(c.Request.Context())
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.requestID != "" {
				req.Header.Set(headerRequestID, tt.requestID)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if seen == nil || seen.RequestID == "" || seen.TraceID == "" {
				t.Fatalf("trace data not attached: %+v", seen)
			}
			if tt.wantRequestID != "" && seen.RequestID != tt.wantRequestID {
				t.Fatalf("request id = %q, want %q", seen.RequestID, tt.wantRequestID)
			}
			if tt.wantRequestID == "" && seen.RequestID == strings.TrimSpace(tt.requestID) {
				t.Fatalf("unsafe request id %q was accepted", tt.requestID)
			}
			if rec.Header().Get(headerRequestID) != seen.RequestID || rec.Header().Get(headerTraceID) != seen.TraceID {
				t.Fatalf("response headers do not echo context ids")
			}
		})
	}
}
