package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/audience-backend/internal/http/response"
	"github.com/yungbote/audience-backend/internal/services"
)

type AudienceQueryHandler struct {
	queries services.AudienceQueryService
}

func NewAudienceQueryHandler(queries services.AudienceQueryService) *AudienceQueryHandler {
	return &AudienceQueryHandler{queries: queries}
}

type createQueryRequest struct {
	AudienceListID string  `json:"audienceListId" binding:"required"`
	PriorQueryID   *string `json:"priorQueryId"`
}

// POST /api/audience-queries
// Generation runs inside the request; execution is queued and the round comes back as created.
func (h *AudienceQueryHandler) Create(c *gin.Context) {
	var req createQueryRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondFrom(c, err)
		return
	}
	profileID, err := bodyUUID(req.AudienceListID, "audience list")
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	var prior *uuid.UUID
	if req.PriorQueryID != nil && *req.PriorQueryID != "" {
		id, err := bodyUUID(*req.PriorQueryID, "prior query")
		if err != nil {
			response.RespondFrom(c, err)
			return
		}
		prior = &id
	}
	round, err := h.queries.CreateRound(requestDBC(c), profileID, prior)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondCreated(c, round)
}

// POST /api/audience-queries/:id/refine
func (h *AudienceQueryHandler) Refine(c *gin.Context) {
	id, err := pathUUID(c, "id", "query")
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	round, err := h.queries.Refine(requestDBC(c), id)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondCreated(c, round)
}

// GET /api/audience-queries/:id
func (h *AudienceQueryHandler) Get(c *gin.Context) {
	id, err := pathUUID(c, "id", "query")
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	round, err := h.queries.GetRound(requestDBC(c), id)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, round)
}

// GET /api/audience-lists/:id/queries/latest
func (h *AudienceQueryHandler) Latest(c *gin.Context) {
	profileID, err := pathUUID(c, "id", "audience list")
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	round, err := h.queries.GetLatestRound(requestDBC(c), profileID)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, round)
}

// GET /api/audience-lists/:id/queries
func (h *AudienceQueryHandler) List(c *gin.Context) {
	profileID, err := pathUUID(c, "id", "audience list")
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	rounds, err := h.queries.ListRounds(requestDBC(c), profileID)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, rounds)
}

// GET /api/audience-queries/:id/job
func (h *AudienceQueryHandler) Job(c *gin.Context) {
	id, err := pathUUID(c, "id", "query")
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	job, err := h.queries.RoundJob(requestDBC(c), id)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}
