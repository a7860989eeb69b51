package chat

import (
	"context"
	"testing"
	"time"

	"github.com/Ackberry/cinetune/internal/domain"
	"github.com/Ackberry/cinetune/pkg/feed"
)

func TestReadLabel(t *testing.T) {
	sentAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	exactly := sentAt
	before := sentAt.Add(-time.Millisecond)
	after := sentAt.Add(time.Millisecond)

	tests := []struct {
		name     string
		lastRead *time.Time
		want     string
	}{
		{"never opened", nil, ReadStateSent},
		{"read before send", &before, ReadStateSent},
		{"read exactly at send", &exactly, ReadStateRead},
		{"read after send", &after, ReadStateRead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReadLabel(sentAt, tt.lastRead); got != tt.want {
				t.Errorf("ReadLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSessionReadState(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	msgRepo.seed(testConvID, 2, base)
	convRepo := newFakeConvRepo()
	f := newFakeFeed()

	s := newTestSession(msgRepo, convRepo, f)
	defer s.Close()
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("failed to open session: %v", err)
	}

	// No messages from the caller yet.
	state, err := s.ReadState(context.Background())
	if err != nil {
		t.Fatalf("read state failed: %v", err)
	}
	if state != ReadStateNone {
		t.Errorf("expected empty label with no own messages, got %q", state)
	}
}

func TestSessionReadStateOwnLatestMessage(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	convRepo := newFakeConvRepo()
	f := newFakeFeed()

	s := newTestSession(msgRepo, convRepo, f)
	defer s.Close()
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("failed to open session: %v", err)
	}

	sent, err := s.Send(context.Background(), "seen yet?")
	if err != nil {
		t.Fatalf("failed to send: %v", err)
	}
	f.deliver(t, feed.MessagesChannel(testConvID), domain.MessageInsertRow{
		ID:             sent.ID,
		ConversationID: sent.ConversationID,
		SenderID:       sent.SenderID,
		Content:        sent.Content,
		CreatedAt:      sent.CreatedAt,
	})
	waitForUpdate(t, s)

	state, err := s.ReadState(context.Background())
	if err != nil {
		t.Fatalf("read state failed: %v", err)
	}
	if state != ReadStateSent {
		t.Errorf("expected Sent before the other side reads, got %q", state)
	}

	readAt := sent.CreatedAt.Add(time.Second)
	convRepo.mu.Lock()
	convRepo.otherLastRead = &readAt
	convRepo.mu.Unlock()

	state, err = s.ReadState(context.Background())
	if err != nil {
		t.Fatalf("read state failed: %v", err)
	}
	if state != ReadStateRead {
		t.Errorf("expected Read after the other side reads, got %q", state)
	}
}

func TestSessionReadStateGroupHasNoLabel(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	convRepo := newFakeConvRepo()
	convRepo.conv.IsGroup = true
	convRepo.conv.Name = "movie night"
	f := newFakeFeed()

	s := newTestSession(msgRepo, convRepo, f)
	defer s.Close()
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("failed to open session: %v", err)
	}

	state, err := s.ReadState(context.Background())
	if err != nil {
		t.Fatalf("read state failed: %v", err)
	}
	if state != ReadStateNone {
		t.Errorf("expected no read state for groups, got %q", state)
	}
}
