package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Ackberry/cinetune/internal/domain"
	"github.com/Ackberry/cinetune/internal/middleware"
	"github.com/Ackberry/cinetune/internal/service"
	"github.com/Ackberry/cinetune/pkg/log"
	"github.com/Ackberry/cinetune/pkg/response"
)

// ListConversations returns the caller's conversation summaries, most
// recent activity first.
func (h *Handler) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()

	summaries, err := h.convService.ListConversations(ctx, middleware.GetUserID(c))
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list conversations")
		response.InternalError(c, "failed to list conversations")
		return
	}

	response.Success(c, summaries)
}

// StartDirect opens (or finds) the direct conversation with the target user.
func (h *Handler) StartDirect(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.StartDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	conv, err := h.convService.StartDirect(ctx, middleware.GetUserID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfConversation):
			response.BadRequest(c, err.Error())
		case errors.Is(err, service.ErrTargetNotFound):
			response.NotFound(c, "target user not found")
		default:
			l.Error().Err(err).Msg("failed to start direct conversation")
			response.InternalError(c, "failed to start conversation")
		}
		return
	}

	response.Success(c, conv)
}

// CreateGroup creates a named group conversation.
func (h *Handler) CreateGroup(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	conv, err := h.convService.CreateGroup(ctx, middleware.GetUserID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyGroupName), errors.Is(err, service.ErrNoMembers):
			response.BadRequest(c, err.Error())
		default:
			l.Error().Err(err).Msg("failed to create group conversation")
			response.InternalError(c, "failed to create group")
		}
		return
	}

	response.Created(c, conv)
}

// ListMessages returns the most recent page of messages for a conversation,
// oldest first. The websocket surface delivers the same page as its history
// frame; this endpoint exists for clients without a socket.
func (h *Handler) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()

	messages, err := h.convService.ListMessages(ctx, middleware.GetUserID(c), c.Param("id"), h.historyLimit)
	if err != nil {
		if errors.Is(err, service.ErrNotParticipant) {
			response.Forbidden(c, "not a participant of this conversation")
			return
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list messages")
		response.InternalError(c, "failed to list messages")
		return
	}

	response.Success(c, messages)
}

// SendMessage appends a message to a conversation over REST.
func (h *Handler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	msg, err := h.convService.SendMessage(ctx, middleware.GetUserID(c), c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotParticipant):
			response.Forbidden(c, "not a participant of this conversation")
		case errors.Is(err, service.ErrEmptyMessage):
			response.BadRequest(c, err.Error())
		default:
			l.Error().Err(err).Msg("failed to send message")
			response.InternalError(c, "failed to send message")
		}
		return
	}

	response.Created(c, msg)
}
