package interfaces

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"staffable/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *HTTPHandler) ListTimesheets(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.timesheets.List(c.Request.Context(), domain.TimesheetStatus(c.Query("status")), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timesheets": out})
}

func (h *HTTPHandler) SubmitTimesheet(c *gin.Context) {
	var t domain.Timesheet
	if !bindJSON(c, &t) {
		return
	}
	out, err := h.timesheets.Submit(c.Request.Context(), t)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *HTTPHandler) ApproveTimesheet(c *gin.Context) {
	out, err := h.timesheets.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) RejectTimesheet(c *gin.Context) {
	var req reasonRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.timesheets.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) ExportTimesheets(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := h.timesheets.Export(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	name := "timesheets.xlsx"
	if !from.IsZero() && !to.IsZero() {
		name = fmt.Sprintf("timesheets-%s-to-%s.xlsx", from, to)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, data)
}
