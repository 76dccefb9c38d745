package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/audience-backend/internal/http/response"
	"github.com/yungbote/audience-backend/internal/services"
)

type AudienceResultHandler struct {
	results services.AudienceResultService
}

func NewAudienceResultHandler(results services.AudienceResultService) *AudienceResultHandler {
	return &AudienceResultHandler{results: results}
}

// GET /api/query-to-contacts/:queryId?page=1&limit=50
func (h *AudienceResultHandler) Page(c *gin.Context) {
	roundID, err := pathUUID(c, "queryId", "query")
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	page, size, err := pageParams(c)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	out, err := h.results.Page(requestDBC(c), roundID, page, size)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, out)
}
