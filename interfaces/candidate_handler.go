package interfaces

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"staffable/domain"
)

func candidateFilter(c *gin.Context) (domain.CandidateFilter, error) {
	f := domain.CandidateFilter{
		Search:    c.Query("q"),
		Subjects:  queryList(c, "subjects"),
		KeyStages: queryList(c, "key_stages"),
		Location:  c.Query("location"),
		QTSOnly:   c.Query("qts") == "true",
		Sort:      domain.CandidateSort(c.Query("sort")),
	}
	var err error
	if f.Page, err = queryInt(c, "page"); err != nil {
		return f, err
	}
	if f.PageSize, err = queryInt(c, "page_size"); err != nil {
		return f, err
	}
	if f.AvailableOn, err = queryDate(c, "available_on"); err != nil {
		return f, err
	}
	if v := strings.TrimSpace(c.Query("min_rating")); v != "" {
		if f.MinRating, err = strconv.ParseFloat(v, 64); err != nil {
			return f, invalid("min_rating must be a number")
		}
	}
	return f, nil
}

// ListCandidates browses the marketplace.
func (h *HTTPHandler) ListCandidates(c *gin.Context) {
	f, err := candidateFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.candidates.Browse(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetCandidate returns a profile with reviews and unavailability for the
// optional from/to window.
func (h *HTTPHandler) GetCandidate(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	profile, err := h.candidates.Profile(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
