package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/site-requisition-api/internal/models"
	"github.com/noah-isme/site-requisition-api/internal/service"
	appErrors "github.com/noah-isme/site-requisition-api/pkg/errors"
	"github.com/noah-isme/site-requisition-api/pkg/response"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login godoc
// @Summary Authenticate and obtain a token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Refresh godoc
// @Summary Rotate a refresh token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.auth.RefreshToken(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Logout godoc
// @Summary Revoke the current refresh token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.RefreshTokenRequest true "Refresh token"
// @Success 204
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// LogoutAll godoc
// @Summary Revoke every live session of the current user
// @Tags Auth
// @Success 204
// @Security BearerAuth
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.auth.LogoutAll(c.Request.Context(), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Me godoc
// @Summary Current user profile
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	profile, err := h.auth.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}
