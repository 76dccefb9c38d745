// Package response writes the JSON bodies every handler returns.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/audience-backend/internal/platform/apierr"
	"github.com/yungbote/audience-backend/internal/platform/ctxutil"
)

const internalMessage = "internal error"

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	body := APIError{Message: "unknown error", Code: code}
	if err != nil {
		body.Message = err.Error()
	}
	body.RequestID = requestID(c)
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: body})
}

// RespondFrom maps err through apierr.From. The raw error is attached to the gin context for
// the request logger; internal failures reach the client without detail.
func RespondFrom(c *gin.Context, err error) {
	ae := apierr.From(err)
	if err != nil {
		_ = c.Error(err)
	}
	switch {
	case ae == nil:
		RespondError(c, http.StatusInternalServerError, "internal", nil)
	case ae.Code == "internal":
		c.AbortWithStatusJSON(ae.Status, ErrorEnvelope{Error: APIError{
			Message:   internalMessage,
			Code:      ae.Code,
			RequestID: requestID(c),
		}})
	default:
		RespondError(c, ae.Status, ae.Code, ae)
	}
}

func requestID(c *gin.Context) string {
	if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
		return td.RequestID
	}
	return ""
}

func RespondOK(c *gin.Context, payload any) { c.JSON(http.StatusOK, payload) }

func RespondCreated(c *gin.Context, payload any) { c.JSON(http.StatusCreated, payload) }
