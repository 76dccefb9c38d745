package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/audience-backend/internal/platform/apierr"
	"github.com/yungbote/audience-backend/internal/platform/ctxutil"
)

func TestRespondFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"classified", apierr.New(http.StatusNotFound, "not_found", errors.New("round not found")), http.StatusNotFound, "not_found", "round not found"},
		{"wrapped", fmt.Errorf("load: %w", apierr.New(http.StatusBadRequest, "validation_failed", errors.New("bad page"))), http.StatusBadRequest, "validation_failed", "bad page"},
		{"unclassified", errors.New("dial tcp 10.0.0.4:5432: refused"), http.StatusInternalServerError, "internal", internalMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			c.Request = req.WithContext(ctxutil.WithTraceData(req.Context(), &ctxutil.TraceData{TraceID: "t", RequestID: "req-1"}))

			RespondFrom(c, tt.err)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var env ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error.Code != tt.code || env.Error.Message != tt.message || env.Error.RequestID != "req-1" {
				t.Fatalf("envelope = %+v", env.Error)
			}
			if !c.IsAborted() || len(c.Errors) != 1 {
				t.Fatalf("aborted=%v errors=%d", c.IsAborted(), len(c.Errors))
			}
		})
	}
}
