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

// GetMe returns the caller's profile.
func (h *Handler) GetMe(c *gin.Context) {
	ctx := c.Request.Context()

	profile, err := h.profileService.GetProfile(ctx, middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			response.NotFound(c, "profile not found")
			return
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to get profile")
		response.InternalError(c, "failed to get profile")
		return
	}

	response.Success(c, profile)
}

// UpdateMe applies a settings update to the caller's profile.
func (h *Handler) UpdateMe(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	profile, err := h.profileService.UpdateProfile(ctx, middleware.GetUserID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProfileNotFound):
			response.NotFound(c, "profile not found")
		case errors.Is(err, repository.ErrUsernameExists):
			response.Conflict(c, "username already taken")
		default:
			l.Error().Err(err).Msg("failed to update profile")
			response.InternalError(c, "failed to update profile")
		}
		return
	}

	response.Success(c, profile)
}

// Discover lists profiles matching a query, or recent profiles when the
// query is empty.
func (h *Handler) Discover(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.SearchProfilesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	profiles, err := h.profileService.Discover(ctx, &req)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldQuery, req.Query).Msg("failed to discover profiles")
		response.InternalError(c, "failed to discover profiles")
		return
	}

	response.Success(c, profiles)
}

// GetProfile returns a public profile by username.
func (h *Handler) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()

	profile, err := h.profileService.GetProfileByUsername(ctx, c.Param("username"))
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			response.NotFound(c, "profile not found")
			return
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to get profile")
		response.InternalError(c, "failed to get profile")
		return
	}

	response.Success(c, profile)
}
