package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/audience-backend/internal/http/response"
	"github.com/yungbote/audience-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs/:id
//
// Clients poll this while a round executes; "done" flips once the job can no longer change.
func (h *JobHandler) GetJob(c *gin.Context) {
	id, err := pathUUID(c, "id", "job")
	if err == nil {
		job, lookupErr := h.jobs.GetByIDForRequestUser(requestDBC(c), id)
		if lookupErr == nil {
			done := job.Done()
			if !done {
				c.Header("Cache-Control", "no-store")
			}
			response.RespondOK(c, gin.H{"job": job, "done": done})
			return
		}
		err = lookupErr
	}
	response.RespondFrom(c, err)
}
