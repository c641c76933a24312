package interfaces

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"staffable/application"
	"staffable/domain"
)

type chatRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
}

func (h *HTTPHandler) Chat(c *gin.Context) {
	var req chatRequest
	if !bindJSON(c, &req) {
		return
	}
	reply, err := h.assistant.Chat(c.Request.Context(), req.Messages)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": reply})
}

type matchRequest struct {
	JobID        string   `json:"job_id"`
	Requirements string   `json:"requirements"`
	Limit        int      `json:"limit"`
	Subjects     []string `json:"subjects"`
	KeyStages    []string `json:"key_stages"`
	Location     string   `json:"location"`
	QTSOnly      bool     `json:"qts_only"`
}

func (h *HTTPHandler) Match(c *gin.Context) {
	var req matchRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.assistant.Match(c.Request.Context(), application.MatchRequest{
		JobID:        req.JobID,
		Requirements: req.Requirements,
		Limit:        req.Limit,
		Filter: domain.CandidateFilter{
			Subjects:  req.Subjects,
			KeyStages: req.KeyStages,
			Location:  req.Location,
			QTSOnly:   req.QTSOnly,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type draftReviewRequest struct {
	BookingID string `json:"booking_id"`
	Rating    int    `json:"rating"`
	Notes     string `json:"notes"`
}

func (h *HTTPHandler) DraftReview(c *gin.Context) {
	var req draftReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.assistant.DraftReview(c.Request.Context(), req.BookingID, req.Rating, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, newGenerationResponse(g))
}

// SummarizeProfile accepts a CV as the multipart field "cv".
func (h *HTTPHandler) SummarizeProfile(c *gin.Context) {
	if h.opts.MaxUploadSize > 0 {
		// Room for the multipart envelope around the file itself.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadSize+1<<20)
	}
	header, err := c.FormFile("cv")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, invalid("file exceeds %d bytes", h.opts.MaxUploadSize))
			return
		}
		respondError(c, invalid("cv file is required"))
		return
	}
	f, err := header.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	g, err := h.assistant.SummarizeProfile(c.Request.Context(), header.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, newGenerationResponse(g))
}

type generationResponse struct {
	ID        uint                    `json:"id"`
	Kind      domain.GenerationKind   `json:"kind"`
	Status    domain.GenerationStatus `json:"status"`
	Output    string                  `json:"output,omitempty"`
	Error     string                  `json:"error,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func newGenerationResponse(g domain.Generation) generationResponse {
	return generationResponse{
		ID:        g.ID,
		Kind:      g.Kind,
		Status:    g.Status,
		Output:    g.Output,
		Error:     g.Error,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func (h *HTTPHandler) GetGeneration(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, invalid("invalid id"))
		return
	}
	g, err := h.assistant.Generation(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGenerationResponse(g))
}
