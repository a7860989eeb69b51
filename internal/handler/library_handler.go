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

// ListLibrary returns the caller's saved items grouped by media type.
func (h *Handler) ListLibrary(c *gin.Context) {
	ctx := c.Request.Context()

	library, err := h.libraryService.List(ctx, middleware.GetUserID(c))
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list library")
		response.InternalError(c, "failed to list library")
		return
	}

	response.Success(c, library)
}

// SaveLibraryItem adds a catalog item to the caller's library.
func (h *Handler) SaveLibraryItem(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.SaveLibraryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	item, err := h.libraryService.Save(ctx, middleware.GetUserID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidMediaType), errors.Is(err, service.ErrMissingExternalID):
			response.BadRequest(c, err.Error())
		case errors.Is(err, repository.ErrItemAlreadySaved):
			response.Conflict(c, "item already saved")
		default:
			l.Error().Err(err).Msg("failed to save library item")
			response.InternalError(c, "failed to save library item")
		}
		return
	}

	response.Created(c, item)
}

// RemoveLibraryItem deletes an item from the caller's library.
func (h *Handler) RemoveLibraryItem(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.libraryService.Remove(ctx, middleware.GetUserID(c), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			response.NotFound(c, "library item not found")
			return
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to remove library item")
		response.InternalError(c, "failed to remove library item")
		return
	}

	response.Success(c, gin.H{"message": "removed"})
}
