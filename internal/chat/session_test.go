package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Ackberry/cinetune/internal/domain"
	"github.com/Ackberry/cinetune/internal/repository"
	"github.com/Ackberry/cinetune/pkg/feed"
)

const (
	testConvID = "conv-1"
	testUserID = "user-a"
	otherUser  = "user-b"
)

// fakeFeed delivers published events to subscribers in-process. Channels may
// carry any number of subscriptions at once, like the real drivers.
type fakeFeed struct {
	mu           sync.Mutex
	subscribers  map[string]map[*fakeSubscription]struct{}
	closedSubs   []string
	subscribeErr error
}

type fakeSubscription struct {
	feed    *fakeFeed
	channel string
	events  chan *feed.Event
	once    sync.Once
}

func (s *fakeSubscription) Events() <-chan *feed.Event { return s.events }

func (s *fakeSubscription) Close() error {
	s.once.Do(func() {
		s.feed.mu.Lock()
		defer s.feed.mu.Unlock()
		close(s.events)
		delete(s.feed.subscribers[s.channel], s)
		s.feed.closedSubs = append(s.feed.closedSubs, s.channel)
	})
	return nil
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{subscribers: make(map[string]map[*fakeSubscription]struct{})}
}

func (f *fakeFeed) Subscribe(ctx context.Context, channel string) (feed.Subscription, error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeSubscription{feed: f, channel: channel, events: make(chan *feed.Event, 16)}
	if f.subscribers[channel] == nil {
		f.subscribers[channel] = make(map[*fakeSubscription]struct{})
	}
	f.subscribers[channel][sub] = struct{}{}
	return sub, nil
}

func (f *fakeFeed) deliver(t *testing.T, channel string, row domain.MessageInsertRow) {
	t.Helper()
	event, err := feed.NewEvent(feed.TableMessages, feed.OpInsert, row)
	if err != nil {
		t.Fatalf("failed to build event: %v", err)
	}
	f.mu.Lock()
	subs := f.subscribers[channel]
	if len(subs) == 0 {
		f.mu.Unlock()
		t.Fatalf("no subscriber on channel %s", channel)
	}
	for sub := range subs {
		sub.events <- event
	}
	f.mu.Unlock()
}

// fakeMessageRepo is an in-memory MessageRepository. Inserted messages gain
// a sender profile on read, mimicking the store-side join.
type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []domain.Message
	inserts  int
}

func (r *fakeMessageRepo) seed(convID string, n int, base time.Time) {
	for i := 0; i < n; i++ {
		r.messages = append(r.messages, domain.Message{
			ID:             fmt.Sprintf("m%d", i+1),
			ConversationID: convID,
			SenderID:       otherUser,
			Content:        fmt.Sprintf("message %d", i+1),
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		})
	}
}

func (r *fakeMessageRepo) Insert(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			msg := r.messages[i]
			msg.Sender = &domain.SenderProfile{Username: msg.SenderID, DisplayName: msg.SenderID}
			return &msg, nil
		}
	}
	return nil, repository.ErrMessageNotFound
}

func (r *fakeMessageRepo) ListByConversation(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Message
	for i := range r.messages {
		if r.messages[i].ConversationID == conversationID {
			matched = append(matched, r.messages[i])
		}
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

func (r *fakeMessageRepo) LastByConversations(ctx context.Context, conversationIDs []string) (map[string]domain.Message, error) {
	return map[string]domain.Message{}, nil
}

func (r *fakeMessageRepo) UnreadCount(ctx context.Context, conversationID, userID string, since *time.Time) (int, error) {
	return 0, nil
}

func (r *fakeMessageRepo) insertCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inserts
}

// fakeConvRepo is an in-memory ConversationRepository covering the calls a
// session makes.
type fakeConvRepo struct {
	mu            sync.Mutex
	conv          domain.Conversation
	participant   bool
	readMarks     []time.Time
	otherLastRead *time.Time
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{
		conv:        domain.Conversation{ID: testConvID, IsGroup: false},
		participant: true,
	}
}

func (r *fakeConvRepo) Create(ctx context.Context, conv *domain.Conversation) error { return nil }
func (r *fakeConvRepo) Delete(ctx context.Context, id string) error                 { return nil }

func (r *fakeConvRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	if id != r.conv.ID {
		return nil, repository.ErrConversationNotFound
	}
	conv := r.conv
	return &conv, nil
}

func (r *fakeConvRepo) GetByDirectKey(ctx context.Context, key string) (*domain.Conversation, error) {
	return nil, repository.ErrConversationNotFound
}

func (r *fakeConvRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Conversation, error) {
	return nil, nil
}

func (r *fakeConvRepo) AddParticipants(ctx context.Context, conversationID string, userIDs []string) error {
	return nil
}

func (r *fakeConvRepo) ConversationIDsForUser(ctx context.Context, userID string) ([]string, error) {
	return nil, nil
}

func (r *fakeConvRepo) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	return r.participant, nil
}

func (r *fakeConvRepo) Participants(ctx context.Context, conversationID string) ([]domain.Participant, error) {
	return nil, nil
}

func (r *fakeConvRepo) OtherParticipantProfile(ctx context.Context, conversationID, userID string) (*domain.Profile, error) {
	return nil, repository.ErrProfileNotFound
}

func (r *fakeConvRepo) OtherParticipantLastReadAt(ctx context.Context, conversationID, userID string) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.otherLastRead, nil
}

func (r *fakeConvRepo) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readMarks = append(r.readMarks, at)
	return nil
}

func newTestSession(msgRepo *fakeMessageRepo, convRepo *fakeConvRepo, f *fakeFeed) *Session {
	return NewSession(testConvID, testUserID, msgRepo, convRepo, f, 50)
}

func waitForUpdate(t *testing.T, s *Session) *domain.Message {
	t.Helper()
	select {
	case msg := <-s.Updates():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session update")
		return nil
	}
}

func TestSessionBootstrapLoadsHistoryAscending(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	msgRepo.seed(testConvID, 25, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	convRepo := newFakeConvRepo()
	f := newFakeFeed()

	s := newTestSession(msgRepo, convRepo, f)
	defer s.Close()

	if s.State() != StateBootstrapping {
		t.Fatalf("expected bootstrapping state, got %s", s.State())
	}

	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("failed to open session: %v", err)
	}

	if s.State() != StateLive {
		t.Fatalf("expected live state, got %s", s.State())
	}

	msgs := s.Messages()
	if len(msgs) != 25 {
		t.Fatalf("expected 25 messages, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Errorf("messages out of order at index %d", i)
		}
	}

	convRepo.mu.Lock()
	marks := len(convRepo.readMarks)
	convRepo.mu.Unlock()
	if marks != 1 {
		t.Errorf("expected 1 read mark after bootstrap, got %d", marks)
	}
}

func TestSessionAppendsLiveMessageWithSenderProfile(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	msgRepo.seed(testConvID, 3, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	convRepo := newFakeConvRepo()
	f := newFakeFeed()

	s := newTestSession(msgRepo, convRepo, f)
	defer s.Close()
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("failed to open session: %v", err)
	}

	incoming := domain.Message{
		ID:             "m-live",
		ConversationID: testConvID,
		SenderID:       otherUser,
		Content:        "hello",
		CreatedAt:      time.Now().UTC(),
	}
	if err := msgRepo.Insert(context.Background(), &incoming); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	f.deliver(t, feed.MessagesChannel(testConvID), domain.MessageInsertRow{
		ID:             incoming.ID,
		ConversationID: incoming.ConversationID,
		SenderID:       incoming.SenderID,
		Content:        incoming.Content,
		CreatedAt:      incoming.CreatedAt,
	})

	got := waitForUpdate(t, s)
	if got.ID != "m-live" {
		t.Fatalf("expected m-live, got %s", got.ID)
	}
	if got.Sender == nil || got.Sender.Username != otherUser {
		t.Errorf("expected joined sender profile on live message, got %+v", got.Sender)
	}

	msgs := s.Messages()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages after live append, got %d", len(msgs))
	}
	if msgs[3].ID != "m-live" {
		t.Errorf("expected live message appended last, got %s", msgs[3].ID)
	}
}

func TestSessionDropsDuplicateDelivery(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	convRepo := newFakeConvRepo()
	f := newFakeFeed()

	s := newTestSession(msgRepo, convRepo, f)
	defer s.Close()
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("failed to open session: %v", err)
	}

	msg := domain.Message{
		ID:             "m-dup",
		ConversationID: testConvID,
		SenderID:       otherUser,
		Content:        "once",
		CreatedAt:      time.Now().UTC(),
	}
	msgRepo.Insert(context.Background(), &msg)

	row := domain.MessageInsertRow{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
	channel := feed.MessagesChannel(testConvID)
	f.deliver(t, channel, row)
	waitForUpdate(t, s)
	f.deliver(t, channel, row)

	// The duplicate produces no update and no second append.
	select {
	case extra := <-s.Updates():
		t.Fatalf("unexpected update for duplicate delivery: %+v", extra)
	case <-time.After(200 * time.Millisecond):
	}

	if got := len(s.Messages()); got != 1 {
		t.Errorf("expected 1 message after duplicate delivery, got %d", got)
	}
}

func TestSessionIgnoresOtherConversations(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	convRepo := newFakeConvRepo()
	f := newFakeFeed()

	s := newTestSession(msgRepo, convRepo, f)
	defer s.Close()
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("failed to open session: %v", err)
	}

	stray := domain.Message{
		ID:             "m-stray",
		ConversationID: "conv-other",
		SenderID:       otherUser,
		Content:        "wrong room",
		CreatedAt:      time.Now().UTC(),
	}
	msgRepo.Insert(context.Background(), &stray)
	f.deliver(t, feed.MessagesChannel(testConvID), domain.MessageInsertRow{
		ID:             stray.ID,
		ConversationID: stray.ConversationID,
		SenderID:       stray.SenderID,
		Content:        stray.Content,
		CreatedAt:      stray.CreatedAt,
	})

	select {
	case msg := <-s.Updates():
		t.Fatalf("unexpected update for other conversation: %+v", msg)
	case <-time.After(200 * time.Millisecond):
	}

	if got := len(s.Messages()); got != 0 {
		t.Errorf("expected empty session, got %d messages", got)
	}
}

func TestSessionSendValidation(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	convRepo := newFakeConvRepo()
	f := newFakeFeed()

	s := newTestSession(msgRepo, convRepo, f)
	defer s.Close()

	// Not live yet
	if _, err := s.Send(context.Background(), "too early"); !errors.Is(err, ErrSessionNotLive) {
		t.Errorf("expected ErrSessionNotLive before open, got %v", err)
	}

	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("failed to open session: %v", err)
	}

	for _, content := range []string{"", "   ", "\n\t"} {
		if _, err := s.Send(context.Background(), content); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("expected ErrEmptyMessage for %q, got %v", content, err)
		}
	}
	if msgRepo.insertCount() != 0 {
		t.Errorf("expected no inserts for rejected sends, got %d", msgRepo.insertCount())
	}

	msg, err := s.Send(context.Background(), "  hello there  ")
	if err != nil {
		t.Fatalf("failed to send: %v", err)
	}
	if msg.Content != "hello there" {
		t.Errorf("expected trimmed content, got %q", msg.Content)
	}

	// No optimistic append: the message shows up only via the feed.
	if got := len(s.Messages()); got != 0 {
		t.Errorf("expected no local append after send, got %d messages", got)
	}
}

func TestSessionClose(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	convRepo := newFakeConvRepo()
	f := newFakeFeed()

	s := newTestSession(msgRepo, convRepo, f)
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("failed to open session: %v", err)
	}

	s.Close()
	s.Close() // idempotent

	if s.State() != StateClosed {
		t.Fatalf("expected closed state, got %s", s.State())
	}

	if _, ok := <-s.Updates(); ok {
		t.Error("expected updates channel closed")
	}

	if _, err := s.Send(context.Background(), "late"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}

	f.mu.Lock()
	unsubs := len(f.closedSubs)
	f.mu.Unlock()
	if unsubs != 1 {
		t.Errorf("expected exactly one subscription close, got %d", unsubs)
	}
}

func TestSessionsOnSameConversationAreIndependent(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	convRepo := newFakeConvRepo()
	f := newFakeFeed()

	a := NewSession(testConvID, testUserID, msgRepo, convRepo, f, 50)
	b := NewSession(testConvID, otherUser, msgRepo, convRepo, f, 50)
	defer b.Close()

	if err := a.Open(context.Background()); err != nil {
		t.Fatalf("failed to open session a: %v", err)
	}
	if err := b.Open(context.Background()); err != nil {
		t.Fatalf("failed to open session b: %v", err)
	}

	// Both participants have the conversation open; closing one must not
	// detach the other.
	a.Close()

	msg := domain.Message{
		ID:             "m-after-close",
		ConversationID: testConvID,
		SenderID:       testUserID,
		Content:        "still here?",
		CreatedAt:      time.Now().UTC(),
	}
	msgRepo.Insert(context.Background(), &msg)
	f.deliver(t, feed.MessagesChannel(testConvID), domain.MessageInsertRow{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	})

	got := waitForUpdate(t, b)
	if got.ID != "m-after-close" {
		t.Fatalf("expected m-after-close, got %s", got.ID)
	}
	if b.State() != StateLive {
		t.Errorf("expected session b still live, got %s", b.State())
	}
}

func TestSessionRejectsNonParticipant(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	convRepo := newFakeConvRepo()
	convRepo.participant = false
	f := newFakeFeed()

	s := newTestSession(msgRepo, convRepo, f)
	defer s.Close()

	if err := s.Open(context.Background()); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}
