package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-api/internal/service"
	"github.com/noah-isme/roster-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// StartSession godoc
// @Summary Start a session for an allowed email
// @Description The email comes from the identity provider; only allow-listed emails receive a token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body service.StartSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/session [post]
func (h *AuthHandler) StartSession(c *gin.Context) {
	var req service.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	session, err := h.service.StartSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}
