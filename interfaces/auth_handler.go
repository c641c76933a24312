package interfaces

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"staffable/domain"
)

type userResponse struct {
	ID          string      `json:"id"`
	Role        domain.Role `json:"role"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	ClientID    string      `json:"client_id,omitempty"`
	CandidateID string      `json:"candidate_id,omitempty"`
}

func newUserResponse(p domain.Principal) userResponse {
	return userResponse{
		ID:          p.UserID,
		Role:        p.Role,
		Name:        p.Name,
		Email:       p.Email,
		ClientID:    p.ClientID,
		CandidateID: p.CandidateID,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *HTTPHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.setCookie(c, sess)
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(sess.Principal())})
}

type acceptInvitationRequest struct {
	Token                string `json:"token"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

func (h *HTTPHandler) AcceptInvitation(c *gin.Context) {
	var req acceptInvitationRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.auth.AcceptInvitation(c.Request.Context(), req.Token, req.Password, req.PasswordConfirmation)
	if err != nil {
		respondError(c, err)
		return
	}
	h.setCookie(c, sess)
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(sess.Principal())})
}

func (h *HTTPHandler) Logout(c *gin.Context) {
	sid, _ := c.Cookie(h.opts.CookieName)
	if err := h.auth.Logout(c.Request.Context(), sid); err != nil {
		respondError(c, err)
		return
	}
	h.clearCookie(c)
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) Me(c *gin.Context) {
	p, err := domain.MustPrincipal(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(p)})
}
