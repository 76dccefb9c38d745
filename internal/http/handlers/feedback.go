package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/audience-backend/internal/http/response"
	"github.com/yungbote/audience-backend/internal/platform/apierr"
	"github.com/yungbote/audience-backend/internal/services"
)

type FeedbackHandler struct {
	feedback services.FeedbackService
}

func NewFeedbackHandler(feedback services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

type overallFeedbackRequest struct {
	AudienceListID  string `json:"audienceListId" binding:"required"`
	AudienceQueryID string `json:"audienceQueryId" binding:"required"`
	OverallFeedback string `json:"overallFeedback"`
}

// POST /api/audience-feedback/overall
func (h *FeedbackHandler) SaveOverall(c *gin.Context) {
	var req overallFeedbackRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondFrom(c, err)
		return
	}
	profileID, err := bodyUUID(req.AudienceListID, "audience list")
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	roundID, err := bodyUUID(req.AudienceQueryID, "query")
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	fb, err := h.feedback.SaveOverall(requestDBC(c), profileID, roundID, req.OverallFeedback)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, fb)
}

type contactJudgement struct {
	ContactID string `json:"contactId"`
	Feedback  string `json:"feedback"`
}

type contactFeedbackRequest struct {
	AudienceListID  string             `json:"audienceListId" binding:"required"`
	AudienceQueryID string             `json:"audienceQueryId" binding:"required"`
	ContactFeedback []contactJudgement `json:"contactFeedback"`
}

// POST /api/audience-feedback/contacts
// Entries are applied in order; the response is the feedback after the last one.
func (h *FeedbackHandler) SaveContacts(c *gin.Context) {
	var req contactFeedbackRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondFrom(c, err)
		return
	}
	if len(req.ContactFeedback) == 0 {
		response.RespondFrom(c, apierr.Validation("contactFeedback must not be empty"))
		return
	}
	profileID, err := bodyUUID(req.AudienceListID, "audience list")
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	roundID, err := bodyUUID(req.AudienceQueryID, "query")
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	dbc := requestDBC(c)
	var out any
	for _, entry := range req.ContactFeedback {
		fb, err := h.feedback.SaveRow(dbc, profileID, roundID, entry.ContactID, entry.Feedback)
		if err != nil {
			response.RespondFrom(c, err)
			return
		}
		out = fb
	}
	response.RespondOK(c, out)
}

// GET /api/audience-feedback/:queryId
func (h *FeedbackHandler) Get(c *gin.Context) {
	roundID, err := pathUUID(c, "queryId", "query")
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	fb, err := h.feedback.Get(requestDBC(c), roundID)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, fb)
}
