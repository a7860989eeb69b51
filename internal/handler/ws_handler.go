package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Ackberry/cinetune/internal/chat"
	"github.com/Ackberry/cinetune/internal/domain"
	"github.com/Ackberry/cinetune/internal/middleware"
	"github.com/Ackberry/cinetune/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame types on the conversation socket.
const (
	frameHistory = "history"
	frameMessage = "message"
	frameRead    = "read_state"
	frameError   = "error"
	frameSend    = "send"
)

// wsFrame is one frame in either direction. Clients only send "send" frames;
// everything else flows server to client.
type wsFrame struct {
	Type      string           `json:"type"`
	Content   string           `json:"content,omitempty"`
	Message   *domain.Message  `json:"message,omitempty"`
	Messages  []domain.Message `json:"messages,omitempty"`
	ReadState string           `json:"read_state,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// ServeConversation upgrades the connection and runs a chat session for one
// conversation. The initial history page goes out as a single frame; after
// that every insert the feed delivers becomes a message frame.
func (h *Handler) ServeConversation(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	conversationID := c.Param("id")
	userID := middleware.GetUserID(c)

	session := chat.NewSession(conversationID, userID, h.msgRepo, h.convRepo, h.feedSub, h.historyLimit)
	if err := session.Open(ctx); err != nil {
		if errors.Is(err, chat.ErrNotParticipant) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not a participant"})
			return
		}
		l.Error().Err(err).Str(log.FieldConversationID, conversationID).Msg("failed to open chat session")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to open session"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		session.Close()
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	send := make(chan *wsFrame, 64)

	history := &wsFrame{Type: frameHistory, Messages: session.Messages()}
	initialState := chat.ReadStateNone
	if state, err := session.ReadState(ctx); err == nil {
		initialState = state
		if state != chat.ReadStateNone {
			history.ReadState = state
		}
	}
	send <- history

	go h.writePump(conn, session, send, initialState)
	h.readPump(conn, session, send)
}

// readPump consumes client frames until the connection drops, then tears the
// session down.
func (h *Handler) readPump(conn *websocket.Conn, session *chat.Session, send chan<- *wsFrame) {
	defer func() {
		session.Close()
		conn.Close()
	}()

	conn.SetReadLimit(h.wsConfig.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.wsConfig.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.wsConfig.PongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l := log.L()
				l.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.trySend(send, session, &wsFrame{Type: frameError, Error: "invalid frame"})
			continue
		}
		if frame.Type != frameSend {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err = session.Send(ctx, frame.Content)
		cancel()
		if err != nil {
			h.trySend(send, session, &wsFrame{Type: frameError, Error: err.Error()})
		}
	}
}

// writePump pushes session updates, read-state changes, and pings to the
// client. The read label rides on every message frame and is re-checked on
// the ping tick so a peer marking the conversation read flips Sent to Read
// even while no messages flow.
func (h *Handler) writePump(conn *websocket.Conn, session *chat.Session, send chan *wsFrame, lastState string) {
	ticker := time.NewTicker(h.wsConfig.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	readState := func() string {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		state, err := session.ReadState(ctx)
		if err != nil {
			return lastState
		}
		return state
	}

	for {
		select {
		case frame, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(h.wsConfig.WriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}

		case msg, ok := <-session.Updates():
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			lastState = readState()
			conn.SetWriteDeadline(time.Now().Add(h.wsConfig.WriteWait))
			if err := conn.WriteJSON(&wsFrame{Type: frameMessage, Message: msg, ReadState: lastState}); err != nil {
				return
			}

		case <-ticker.C:
			if state := readState(); state != lastState {
				lastState = state
				conn.SetWriteDeadline(time.Now().Add(h.wsConfig.WriteWait))
				if err := conn.WriteJSON(&wsFrame{Type: frameRead, ReadState: state}); err != nil {
					return
				}
			}
			conn.SetWriteDeadline(time.Now().Add(h.wsConfig.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues a frame unless the session is already closed or the send
// buffer is full.
func (h *Handler) trySend(send chan<- *wsFrame, session *chat.Session, frame *wsFrame) {
	if session.State() == chat.StateClosed {
		return
	}
	select {
	case send <- frame:
	default:
	}
}
