package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-api/internal/service"
	"github.com/noah-isme/roster-api/pkg/response"
)

// UserHandler manages the allowed users table.
type UserHandler struct {
	access *service.AccessService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(access *service.AccessService) *UserHandler {
	return &UserHandler{access: access}
}

// Grant godoc
// @Summary Allow an email to sign in
// @Description invited_by defaults to the caller's email
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body service.GrantAccessRequest true "User payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users [post]
func (h *UserHandler) Grant(c *gin.Context) {
	var req service.GrantAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if req.InvitedBy == "" {
		if claims := claimsFromContext(c); claims != nil {
			req.InvitedBy = claims.Email
		}
	}
	user, err := h.access.Grant(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Lookup godoc
// @Summary Find an allowed user by email
// @Tags Users
// @Produce json
// @Param email query string true "Email"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) Lookup(c *gin.Context) {
	user, err := h.access.Lookup(c.Request.Context(), c.Query("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}
