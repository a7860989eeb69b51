package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Ackberry/cinetune/internal/domain"
	"github.com/Ackberry/cinetune/internal/middleware"
	"github.com/Ackberry/cinetune/internal/repository"
	"github.com/Ackberry/cinetune/internal/service"
	"github.com/Ackberry/cinetune/pkg/log"
	"github.com/Ackberry/cinetune/pkg/response"
)

// Register creates a new account.
func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind register request")
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.profileService.Register(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			response.Conflict(c, "email already registered")
		case errors.Is(err, repository.ErrUsernameExists):
			response.Conflict(c, "username already taken")
		default:
			l.Error().Err(err).Msg("failed to register")
			response.InternalError(c, "failed to register")
		}
		return
	}

	response.Created(c, resp)
}

// Login authenticates with email and password.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.profileService.Login(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "invalid credentials")
			return
		}
		l.Error().Err(err).Msg("failed to login")
		response.InternalError(c, "failed to login")
		return
	}

	response.Success(c, resp)
}

// Refresh exchanges a refresh token for a new token pair.
func (h *Handler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.profileService.RefreshToken(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "invalid refresh token")
			return
		}
		l.Error().Err(err).Msg("failed to refresh token")
		response.InternalError(c, "failed to refresh token")
		return
	}

	response.Success(c, resp)
}

// Logout records the logout.
func (h *Handler) Logout(c *gin.Context) {
	ctx := c.Request.Context()

	userID := middleware.GetUserID(c)
	if err := h.profileService.Logout(ctx, userID); err != nil {
		response.InternalError(c, "failed to logout")
		return
	}

	response.Success(c, gin.H{"message": "logged out"})
}
