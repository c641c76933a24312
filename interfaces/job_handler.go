package interfaces

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"staffable/domain"
)

func (h *HTTPHandler) ListJobs(c *gin.Context) {
	jobs, err := h.jobs.ListJobs(c.Request.Context(), domain.JobStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *HTTPHandler) Pipeline(c *gin.Context) {
	p, err := h.jobs.Pipeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type moveRequest struct {
	Stage domain.Stage `json:"stage"`
}

func (h *HTTPHandler) MoveApplication(c *gin.Context) {
	var req moveRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.jobs.MoveApplication(c.Request.Context(), c.Param("id"), req.Stage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

type reviewRequest struct {
	BookingID string `json:"booking_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

func (h *HTTPHandler) SubmitReview(c *gin.Context) {
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.reviews.Submit(c.Request.Context(), req.BookingID, req.Rating, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}
