package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Ackberry/cinetune/internal/audit"
	"github.com/Ackberry/cinetune/internal/domain"
	"github.com/Ackberry/cinetune/internal/repository"
	"github.com/Ackberry/cinetune/pkg/log"
)

var (
	ErrSelfConversation = errors.New("cannot start a conversation with yourself")
	ErrTargetNotFound   = errors.New("target user not found")
	ErrEmptyGroupName   = errors.New("group name cannot be empty")
	ErrNoMembers        = errors.New("group needs at least one other member")
	ErrAddParticipants  = errors.New("failed to add participants")
	ErrNotParticipant   = errors.New("not a participant of this conversation")
	ErrEmptyMessage     = errors.New("message content cannot be empty")
)

// conversationServiceImpl implements ConversationService interface.
type conversationServiceImpl struct {
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	profileRepo repository.ProfileRepository
}

// NewConversationService creates a new conversation service.
func NewConversationService(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository, profileRepo repository.ProfileRepository) ConversationService {
	return &conversationServiceImpl{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		profileRepo: profileRepo,
	}
}

// StartDirect opens the direct conversation between the caller and the
// target, creating it if no shared direct conversation exists yet. Creation
// is a two-step insert with a compensating delete; concurrent duplicate
// creation is resolved by the unique direct-pair key, in which case the
// winner's conversation is returned.
func (s *conversationServiceImpl) StartDirect(ctx context.Context, userID string, req *domain.StartDirectRequest) (*domain.ConversationResponse, error) {
	l := log.Ctx(ctx)

	if req.TargetID == userID {
		return nil, ErrSelfConversation
	}

	if _, err := s.profileRepo.GetByID(ctx, req.TargetID); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}

	existing, err := s.findSharedDirect(ctx, userID, req.TargetID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		resp := existing.ToResponse()
		return &resp, nil
	}

	conv := &domain.Conversation{
		ID:        uuid.New().String(),
		IsGroup:   false,
		DirectKey: domain.DirectKey(userID, req.TargetID),
	}

	if err := s.convRepo.Create(ctx, conv); err != nil {
		if errors.Is(err, repository.ErrDirectKeyExists) {
			// Lost the race; the other creator's conversation wins.
			winner, getErr := s.convRepo.GetByDirectKey(ctx, conv.DirectKey)
			if getErr != nil {
				return nil, getErr
			}
			resp := winner.ToResponse()
			return &resp, nil
		}
		return nil, err
	}

	if err := s.convRepo.AddParticipants(ctx, conv.ID, []string{userID, req.TargetID}); err != nil {
		l.Error().Err(err).Str(log.FieldConversationID, conv.ID).Msg("failed to add participants")
		// Compensate: drop the half-created conversation. Best effort only.
		if delErr := s.convRepo.Delete(ctx, conv.ID); delErr != nil {
			l.Error().Err(delErr).Str(log.FieldConversationID, conv.ID).Msg("failed to roll back conversation")
		}
		return nil, ErrAddParticipants
	}

	audit.Log(ctx, audit.ActionCreateDirect, userID, "direct conversation created")

	resp := conv.ToResponse()
	return &resp, nil
}

// findSharedDirect scans both users' conversation memberships and returns
// the direct conversation they share, if any.
func (s *conversationServiceImpl) findSharedDirect(ctx context.Context, userID, targetID string) (*domain.Conversation, error) {
	userIDs, err := s.convRepo.ConversationIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	targetIDs, err := s.convRepo.ConversationIDsForUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	targetSet := make(map[string]struct{}, len(targetIDs))
	for _, id := range targetIDs {
		targetSet[id] = struct{}{}
	}

	var shared []string
	for _, id := range userIDs {
		if _, ok := targetSet[id]; ok {
			shared = append(shared, id)
		}
	}
	if len(shared) == 0 {
		return nil, nil
	}

	convs, err := s.convRepo.ListByIDs(ctx, shared)
	if err != nil {
		return nil, err
	}
	for i := range convs {
		if !convs[i].IsGroup {
			return &convs[i], nil
		}
	}
	return nil, nil
}

// CreateGroup creates a named group conversation. Groups are never
// deduplicated; every call creates a fresh conversation.
func (s *conversationServiceImpl) CreateGroup(ctx context.Context, userID string, req *domain.CreateGroupRequest) (*domain.ConversationResponse, error) {
	l := log.Ctx(ctx)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyGroupName
	}

	members := dedupeMembers(userID, req.MemberIDs)
	if len(members) < 2 {
		return nil, ErrNoMembers
	}

	conv := &domain.Conversation{
		ID:      uuid.New().String(),
		IsGroup: true,
		Name:    name,
	}

	if err := s.convRepo.Create(ctx, conv); err != nil {
		return nil, err
	}

	if err := s.convRepo.AddParticipants(ctx, conv.ID, members); err != nil {
		l.Error().Err(err).Str(log.FieldConversationID, conv.ID).Msg("failed to add participants")
		if delErr := s.convRepo.Delete(ctx, conv.ID); delErr != nil {
			l.Error().Err(delErr).Str(log.FieldConversationID, conv.ID).Msg("failed to roll back conversation")
		}
		return nil, ErrAddParticipants
	}

	audit.Log(ctx, audit.ActionCreateGroup, userID, "group conversation created")

	resp := conv.ToResponse()
	return &resp, nil
}

// dedupeMembers returns the creator plus the unique member ids, creator first.
func dedupeMembers(creatorID string, memberIDs []string) []string {
	seen := map[string]struct{}{creatorID: {}}
	members := []string{creatorID}
	for _, id := range memberIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	return members
}

// ListMessages returns the most recent page of messages in ascending order,
// with sender profiles attached. Opening the page marks the conversation read.
func (s *conversationServiceImpl) ListMessages(ctx context.Context, userID, conversationID string, limit int) ([]domain.Message, error) {
	member, err := s.convRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotParticipant
	}

	messages, err := s.msgRepo.ListByConversation(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}

	if err := s.convRepo.MarkRead(ctx, conversationID, userID, time.Now()); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldConversationID, conversationID).Msg("failed to mark conversation read")
	}

	return messages, nil
}

// SendMessage appends a message over the REST surface. The repository
// publishes the change feed event, so open sessions pick it up the same way
// they pick up socket sends.
func (s *conversationServiceImpl) SendMessage(ctx context.Context, userID, conversationID string, req *domain.SendMessageRequest) (*domain.Message, error) {
	member, err := s.convRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotParticipant
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       userID,
		Content:        content,
	}
	if err := s.msgRepo.Insert(ctx, msg); err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionSendMessage, userID, "message sent")

	return msg, nil
}

// ListConversations assembles the sidebar list: each conversation with the
// other participant (direct only), last message preview, and unread count,
// ordered by most recent activity.
func (s *conversationServiceImpl) ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	ids, err := s.convRepo.ConversationIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.ConversationSummary{}, nil
	}

	convs, err := s.convRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	lastMsgs, err := s.msgRepo.LastByConversations(ctx, ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.ConversationSummary, len(convs))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	for i := range convs {
		i := i
		conv := convs[i]
		g.Go(func() error {
			summary := domain.ConversationSummary{
				ID:      conv.ID,
				IsGroup: conv.IsGroup,
				Name:    conv.Name,
			}

			if !conv.IsGroup {
				other, err := s.convRepo.OtherParticipantProfile(gCtx, conv.ID, userID)
				if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
					return err
				}
				if other != nil {
					resp := other.ToResponse()
					summary.OtherUser = &resp
				}
			}

			participants, err := s.convRepo.Participants(gCtx, conv.ID)
			if err != nil {
				return err
			}
			var lastReadAt *time.Time
			for _, p := range participants {
				if p.UserID == userID {
					lastReadAt = p.LastReadAt
					break
				}
			}

			unread, err := s.msgRepo.UnreadCount(gCtx, conv.ID, userID, lastReadAt)
			if err != nil {
				return err
			}
			summary.UnreadCount = unread

			mu.Lock()
			summaries[i] = summary
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range summaries {
		if msg, ok := lastMsgs[summaries[i].ID]; ok {
			summaries[i].LastMessage = &domain.MessagePreview{
				Content:   msg.Content,
				SenderID:  msg.SenderID,
				CreatedAt: msg.CreatedAt,
			}
		}
	}

	// Most recent activity first; conversations with no messages sink.
	sort.SliceStable(summaries, func(a, b int) bool {
		ma, mb := summaries[a].LastMessage, summaries[b].LastMessage
		if ma == nil {
			return false
		}
		if mb == nil {
			return true
		}
		return ma.CreatedAt.After(mb.CreatedAt)
	})

	return summaries, nil
}
