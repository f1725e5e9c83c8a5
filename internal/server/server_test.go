package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Finmate-core-poc/server/internal/agent/classifier"
	"github.com/Finmate-core-poc/server/internal/agent/composer"
	"github.com/Finmate-core-poc/server/internal/agent/conversations"
	"github.com/Finmate-core-poc/server/internal/agent/executor"
	"github.com/Finmate-core-poc/server/internal/agent/model"
	"github.com/Finmate-core-poc/server/internal/agent/registry"
	"github.com/Finmate-core-poc/server/internal/agent/repo"
	"github.com/Finmate-core-poc/server/internal/agent/router"
	"github.com/Finmate-core-poc/server/internal/collab/market"
	"github.com/Finmate-core-poc/server/internal/collab/persistence"
	"github.com/Finmate-core-poc/server/internal/collab/sandbox"
	"github.com/Finmate-core-poc/server/internal/core"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	conversationRepo := repo.NewRedisConversationRepository(rdb, time.Minute)
	convCfg := model.ConversationConfig{}
	convCfg.Classifier.MaxTurns = 5
	manager := conversations.NewMessagesManager(conversationRepo, convCfg)

	ledger, err := persistence.Open(context.Background(), persistence.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	reg, err := registry.Build(registry.Deps{
		Ledger:  ledger,
		Rates:   market.NewClient(market.Config{}),
		Quotes:  market.NewQuoteClient(market.QuoteConfig{}),
		Sandbox: sandbox.NewClient(sandbox.Config{}),
	})
	require.NoError(t, err)

	cls := classifier.NewRuleClassifier(reg.Intents())
	exec := executor.New(reg, time.Second)
	comp := composer.New(nil, "", manager, model.ResponsePromptConfig{AssistantName: "Finmate", Currency: "USD"})
	r := router.New(cls, exec, comp, manager, reg, model.RouterConfig{
		ConfidenceThreshold: 0.5,
		MaxRetries:          3,
	})

	return New(Config{Addr: ":0"}, core.Testing, router.NewSessionManager(r))
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func dialChat(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) model.Event {
	t.Helper()
	var ev model.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestChatGreeting(t *testing.T) {
	conn := dialChat(t, newTestServer(t))

	greeting := readEvent(t, conn)
	assert.Equal(t, model.EventSystem, greeting.Kind)
	assert.NotEmpty(t, greeting.SessionID)
	assert.Contains(t, greeting.Content, "How can I help")
}

func TestChatMessageRoundTrip(t *testing.T) {
	conn := dialChat(t, newTestServer(t))
	readEvent(t, conn) // greeting

	require.NoError(t, conn.WriteJSON(map[string]string{
		"type":    "message",
		"content": "I spent 12.50 at Starbucks on coffee",
	}))

	var saw []string
	var content model.Event
	for {
		ev := readEvent(t, conn)
		saw = append(saw, ev.Kind)
		if ev.Kind == model.EventContent {
			content = ev
		}
		if ev.Kind == model.EventComplete {
			break
		}
	}

	assert.Contains(t, saw, model.EventStatus)
	assert.Contains(t, saw, model.EventContent)
	assert.Contains(t, content.Content, "Recorded 12.50 USD on coffee")
}

func TestChatReset(t *testing.T) {
	conn := dialChat(t, newTestServer(t))
	greeting := readEvent(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "reset"}))

	ev := readEvent(t, conn)
	assert.Equal(t, model.EventSystem, ev.Kind)
	assert.Equal(t, "Conversation cleared.", ev.Content)
	assert.Equal(t, greeting.SessionID, ev.SessionID)
}

func TestChatBadFrames(t *testing.T) {
	conn := dialChat(t, newTestServer(t))
	readEvent(t, conn) // greeting

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "message", "content": "   "}))
	ev := readEvent(t, conn)
	assert.Equal(t, model.EventError, ev.Kind)
	assert.Equal(t, "empty message", ev.Content)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "shout", "content": "hello"}))
	ev = readEvent(t, conn)
	assert.Equal(t, model.EventError, ev.Kind)
	assert.Equal(t, "unknown frame type", ev.Content)
}
