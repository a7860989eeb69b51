package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ackberry/cinetune/internal/domain"
	"github.com/Ackberry/cinetune/internal/repository"
	"github.com/Ackberry/cinetune/pkg/feed"
	"github.com/Ackberry/cinetune/pkg/log"
)

// Session states. A session moves bootstrapping -> live -> closed and never
// backwards.
const (
	StateBootstrapping = "bootstrapping"
	StateLive          = "live"
	StateClosed        = "closed"
)

var (
	ErrNotParticipant = errors.New("user is not a participant of this conversation")
	ErrEmptyMessage   = errors.New("message content cannot be empty")
	ErrSessionClosed  = errors.New("session is closed")
	ErrSessionNotLive = errors.New("session is not live")
)

// fetchTimeout bounds the re-fetch a live session does per feed event.
const fetchTimeout = 5 * time.Second

// Session is one user's live view of one conversation: the initial history
// page plus every insert the change feed delivers while it is open. The feed
// is the only append path; sending a message does not touch the local list
// until its insert event comes back.
type Session struct {
	conversationID string
	userID         string
	historyLimit   int

	msgRepo  repository.MessageRepository
	convRepo repository.ConversationRepository
	feed     feed.Subscriber

	mu       sync.Mutex
	state    string
	sub      feed.Subscription
	messages []domain.Message
	seen     map[string]struct{}

	updates   chan *domain.Message
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession creates a session in the bootstrapping state. Nothing is loaded
// or subscribed until Open.
func NewSession(conversationID, userID string, msgRepo repository.MessageRepository, convRepo repository.ConversationRepository, feedSub feed.Subscriber, historyLimit int) *Session {
	return &Session{
		conversationID: conversationID,
		userID:         userID,
		historyLimit:   historyLimit,
		msgRepo:        msgRepo,
		convRepo:       convRepo,
		feed:           feedSub,
		state:          StateBootstrapping,
		seen:           make(map[string]struct{}),
		updates:        make(chan *domain.Message, 64),
		done:           make(chan struct{}),
	}
}

// Open performs the bootstrap: membership check, feed subscription, initial
// history page, read mark. On success the session is live and Updates()
// starts delivering. The subscription is established before the history load
// so an insert landing between the two is caught by either path; duplicate
// deliveries are dropped by id.
func (s *Session) Open(ctx context.Context) error {
	l := log.Ctx(ctx)

	member, err := s.convRepo.IsParticipant(ctx, s.conversationID, s.userID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotParticipant
	}

	channel := feed.MessagesChannel(s.conversationID)
	sub, err := s.feed.Subscribe(ctx, channel)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	history, err := s.msgRepo.ListByConversation(ctx, s.conversationID, s.historyLimit)
	if err != nil {
		s.unsubscribe()
		return err
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		s.unsubscribe()
		return ErrSessionClosed
	}
	s.messages = history
	for i := range history {
		s.seen[history[i].ID] = struct{}{}
	}
	s.state = StateLive
	s.mu.Unlock()

	if err := s.convRepo.MarkRead(ctx, s.conversationID, s.userID, time.Now().UTC()); err != nil {
		l.Warn().Err(err).Str(log.FieldConversationID, s.conversationID).Msg("failed to mark conversation read")
	}

	go s.consume(sub.Events())

	l.Debug().
		Str(log.FieldConversationID, s.conversationID).
		Str(log.FieldSessionState, StateLive).
		Int("history_len", len(history)).
		Msg("chat session live")

	return nil
}

// consume applies feed events until the feed channel closes or the session
// is torn down.
func (s *Session) consume(events <-chan *feed.Event) {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(event)
		}
	}
}

// handleEvent appends the inserted row to the session. The event row lacks
// joined sender data, so the message is re-fetched by id first.
func (s *Session) handleEvent(event *feed.Event) {
	if event.Table != feed.TableMessages || event.Op != feed.OpInsert {
		return
	}

	var row domain.MessageInsertRow
	if err := event.UnmarshalRow(&row); err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldConversationID, s.conversationID).Msg("failed to decode feed event row")
		return
	}
	if row.ConversationID != s.conversationID {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	msg, err := s.msgRepo.GetByID(ctx, row.ID)
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldMessageID, row.ID).Msg("failed to fetch message for feed event")
		return
	}

	s.mu.Lock()
	if s.state != StateLive {
		s.mu.Unlock()
		return
	}
	if _, dup := s.seen[msg.ID]; dup {
		s.mu.Unlock()
		return
	}
	s.seen[msg.ID] = struct{}{}
	s.messages = append(s.messages, *msg)

	// Sending and closing the updates channel are both serialized through
	// the mutex. A slow consumer drops updates rather than stalling the
	// feed loop.
	select {
	case s.updates <- msg:
	default:
	}
	s.mu.Unlock()

	// The conversation is on screen, so anything arriving counts as read.
	if msg.SenderID != s.userID {
		if err := s.convRepo.MarkRead(ctx, s.conversationID, s.userID, time.Now().UTC()); err != nil {
			l := log.L()
			l.Warn().Err(err).Str(log.FieldConversationID, s.conversationID).Msg("failed to mark conversation read")
		}
	}
}

// Send validates and persists a message. The local list is not touched; the
// message appears when its insert event arrives, same as for any other
// participant.
func (s *Session) Send(ctx context.Context, content string) (*domain.Message, error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	switch state {
	case StateClosed:
		return nil, ErrSessionClosed
	case StateBootstrapping:
		return nil, ErrSessionNotLive
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: s.conversationID,
		SenderID:       s.userID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.msgRepo.Insert(ctx, msg); err != nil {
		return nil, err
	}

	return msg, nil
}

// Messages returns a snapshot of the session's message list, oldest first.
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]domain.Message, len(s.messages))
	copy(snapshot, s.messages)
	return snapshot
}

// Updates delivers messages appended after bootstrap, in feed order.
func (s *Session) Updates() <-chan *domain.Message {
	return s.updates
}

// State returns the current session state.
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close tears the session down: the feed subscription is dropped and the
// updates channel closes. Safe to call more than once; events arriving after
// close are discarded.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		close(s.done)
		close(s.updates)
		s.mu.Unlock()

		s.unsubscribe()
	})
}

func (s *Session) unsubscribe() {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()

	if sub == nil {
		return
	}
	if err := sub.Close(); err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldConversationID, s.conversationID).Msg("failed to close feed subscription")
	}
}
