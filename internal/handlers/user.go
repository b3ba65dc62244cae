package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/croswell/taskmaster-api/internal/dto"
	apierrors "github.com/croswell/taskmaster-api/internal/errors"
	"github.com/croswell/taskmaster-api/internal/middleware"
	"github.com/croswell/taskmaster-api/internal/services"
)

// UserHandler serves the current user's profile endpoints.
type UserHandler struct {
	authService *services.AuthService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(authService *services.AuthService) *UserHandler {
	return &UserHandler{
		authService: authService,
	}
}

// GetMe returns the current user's profile.
func (h *UserHandler) GetMe(c *gin.Context) {
	user, exists := middleware.GetCurrentUser(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// UpdateMe updates the current user's profile. Only the fields present in
// the request body change; a new password is re-hashed.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type UpdateRequest struct {
		Email    *string `json:"email" binding:"omitempty,email"`
		Username *string `json:"username" binding:"omitempty,min=3,max=50"`
		FullName *string `json:"full_name"`
		Password *string `json:"password"`
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.UpdateProfile(userID, services.UpdateProfileInput{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// DeleteMe removes the current user's account and all their tasks.
func (h *UserHandler) DeleteMe(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.authService.DeleteAccount(userID); err != nil {
		respondAuthError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
