package interfaces

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"staffable/application"
	"staffable/domain"
)

func (h *HTTPHandler) PreviewBooking(c *gin.Context) {
	var pattern domain.BookingPattern
	if !bindJSON(c, &pattern) {
		return
	}
	days, err := h.bookings.Preview(pattern)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days, "count": len(days)})
}

func (h *HTTPHandler) CreateBooking(c *gin.Context) {
	var req application.BookingRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.bookings.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *HTTPHandler) ListBookings(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.bookings.List(c.Request.Context(), from, to, domain.BookingStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *HTTPHandler) CancelBooking(c *gin.Context) {
	var req reasonRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.bookings.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// Diary serves a from/to range when either is given, otherwise the month
// grid for year and month (the current month by default).
func (h *HTTPHandler) Diary(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var d application.Diary
	if !from.IsZero() || !to.IsZero() {
		d, err = h.bookings.DiaryRange(c.Request.Context(), from, to)
	} else {
		var year, month int
		if year, err = queryInt(c, "year"); err != nil {
			respondError(c, err)
			return
		}
		if month, err = queryInt(c, "month"); err != nil {
			respondError(c, err)
			return
		}
		d, err = h.bookings.DiaryMonth(c.Request.Context(), year, time.Month(month))
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
