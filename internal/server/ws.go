package server

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Finmate-core-poc/server/internal/agent/model"
	logx "github.com/Finmate-core-poc/server/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The assistant is same-origin agnostic; auth belongs to the proxy in
	// front of it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundFrame is what the client sends on the chat socket.
type inboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

const maxMessageLen = 8 * 1024

// chat upgrades the connection, assigns a session, and pumps decision
// cycles until the client goes away. Events stream out as the router
// produces them; gorilla connections need writes serialized, hence the
// write lock in the emitter.
func (s *Server) chat(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logx.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	defer s.sessions.Drop(sessionID)

	var writeMu sync.Mutex
	send := func(ev model.Event) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(ev); err != nil {
			logx.Debug().Err(err).Str("session_id", sessionID).Msg("websocket write failed")
		}
	}

	send(model.Event{
		Kind:      model.EventSystem,
		Content:   "Connected. How can I help with your finances today?",
		SessionID: sessionID,
	})

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logx.Debug().Err(err).Str("session_id", sessionID).Msg("websocket closed unexpectedly")
			}
			return
		}

		switch frame.Type {
		case "message":
			text := strings.TrimSpace(frame.Content)
			if text == "" {
				send(model.Event{Kind: model.EventError, Content: "empty message"})
				continue
			}
			if len(text) > maxMessageLen {
				send(model.Event{Kind: model.EventError, Content: "message too long"})
				continue
			}
			if err := s.sessions.HandleMessage(c.Request.Context(), sessionID, text, send); err != nil {
				logx.Error().Err(err).Str("session_id", sessionID).Msg("decision cycle failed")
				send(model.Event{Kind: model.EventError, Content: "something went wrong, please try again"})
			}
		case "reset":
			if err := s.sessions.Reset(context.WithoutCancel(c.Request.Context()), sessionID); err != nil {
				logx.Error().Err(err).Str("session_id", sessionID).Msg("session reset failed")
				send(model.Event{Kind: model.EventError, Content: "could not reset the conversation"})
				continue
			}
			send(model.Event{Kind: model.EventSystem, Content: "Conversation cleared.", SessionID: sessionID})
		default:
			send(model.Event{Kind: model.EventError, Content: "unknown frame type"})
		}
	}
}
