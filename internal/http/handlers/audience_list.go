package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/audience-backend/internal/http/response"
	"github.com/yungbote/audience-backend/internal/services"
)

type AudienceListHandler struct {
	profiles services.AudienceProfileService
}

func NewAudienceListHandler(profiles services.AudienceProfileService) *AudienceListHandler {
	return &AudienceListHandler{profiles: profiles}
}

// POST /api/audience-lists
func (h *AudienceListHandler) Create(c *gin.Context) {
	p, err := h.profiles.Create(requestDBC(c))
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondCreated(c, p)
}

// GET /api/audience-lists
func (h *AudienceListHandler) List(c *gin.Context) {
	list, err := h.profiles.List(requestDBC(c))
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, list)
}

// GET /api/audience-lists/:id
func (h *AudienceListHandler) Get(c *gin.Context) {
	id, err := pathUUID(c, "id", "audience list")
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	p, err := h.profiles.Get(requestDBC(c), id)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, p)
}

type updateAudienceListRequest struct {
	Name              *string `json:"name"`
	FreeFormContacts  *string `json:"freeFormContacts"`
	AdditionalContext *string `json:"additionalContext"`
}

// PUT /api/audience-lists/:id
func (h *AudienceListHandler) Update(c *gin.Context) {
	id, err := pathUUID(c, "id", "audience list")
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	var req updateAudienceListRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondFrom(c, err)
		return
	}
	p, err := h.profiles.Update(requestDBC(c), id, services.ProfileUpdate{
		Name:              req.Name,
		FreeFormContacts:  req.FreeFormContacts,
		AdditionalContext: req.AdditionalContext,
	})
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, p)
}

// DELETE /api/audience-lists/:id
func (h *AudienceListHandler) Delete(c *gin.Context) {
	id, err := pathUUID(c, "id", "audience list")
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	if err := h.profiles.Delete(requestDBC(c), id); err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Audience list deleted successfully"})
}
