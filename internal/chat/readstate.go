package chat

import (
	"context"
	"time"

	"github.com/Ackberry/cinetune/internal/domain"
)

// Read-state labels shown under the caller's latest message.
const (
	ReadStateRead = "Read"
	ReadStateSent = "Sent"
	ReadStateNone = ""
)

// ReadLabel reports whether a message sent at sentAt has been read, given
// the other participant's read mark. A nil mark means never opened.
func ReadLabel(sentAt time.Time, otherLastReadAt *time.Time) string {
	if otherLastReadAt != nil && !otherLastReadAt.Before(sentAt) {
		return ReadStateRead
	}
	return ReadStateSent
}

// ReadState computes the label for the caller's latest message in the
// session. Only direct conversations carry read state; groups and sessions
// where the caller has not sent anything yet get the empty label.
func (s *Session) ReadState(ctx context.Context) (string, error) {
	conv, err := s.convRepo.GetByID(ctx, s.conversationID)
	if err != nil {
		return ReadStateNone, err
	}
	if conv.IsGroup {
		return ReadStateNone, nil
	}

	var latest *domain.Message
	msgs := s.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].SenderID == s.userID {
			latest = &msgs[i]
			break
		}
	}
	if latest == nil {
		return ReadStateNone, nil
	}

	otherLastReadAt, err := s.convRepo.OtherParticipantLastReadAt(ctx, s.conversationID, s.userID)
	if err != nil {
		return ReadStateNone, err
	}

	return ReadLabel(latest.CreatedAt, otherLastReadAt), nil
}
