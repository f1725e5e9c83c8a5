package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
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
	"github.com/Finmate-core-poc/server/internal/collab/market"
	"github.com/Finmate-core-poc/server/internal/collab/persistence"
	"github.com/Finmate-core-poc/server/internal/collab/sandbox"
)

// stubClassifier returns scripted classifications in order and delegates
// slot-fill extraction to the deterministic extractor.
type stubClassifier struct {
	queue []*model.Classification
	calls int
}

func (s *stubClassifier) Classify(ctx context.Context, conversationContext string) (*model.Classification, error) {
	s.calls++
	if len(s.queue) == 0 {
		return &model.Classification{}, nil
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	return next, nil
}

func (s *stubClassifier) ExtractSlots(ctx context.Context, text string, spec *model.IntentSpec, asked string) (model.SlotValues, error) {
	return classifier.ExtractSlotValues(text, spec, asked), nil
}

type harness struct {
	sessions *SessionManager
	router   *Router
	ledger   *persistence.Ledger
	repo     *repo.RedisConversationRepository
}

func newHarness(t *testing.T, cls classifier.Classifier, rates market.Config) *harness {
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
		Rates:   market.NewClient(rates),
		Quotes:  market.NewQuoteClient(market.QuoteConfig{}),
		Sandbox: sandbox.NewClient(sandbox.Config{}),
	})
	require.NoError(t, err)

	exec := executor.New(reg, time.Second)
	comp := composer.New(nil, "", manager, model.ResponsePromptConfig{AssistantName: "Finmate", Currency: "USD"})
	r := New(cls, exec, comp, manager, reg, model.RouterConfig{
		ConfidenceThreshold: 0.5,
		MaxRetries:          3,
	})

	return &harness{
		sessions: NewSessionManager(r),
		router:   r,
		ledger:   ledger,
		repo:     conversationRepo,
	}
}

// collect returns an emitter appending into the given slice. Handling is
// single-threaded per session, so no locking is needed here.
func collect(events *[]model.Event) model.Emitter {
	return func(ev model.Event) { *events = append(*events, ev) }
}

func kinds(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func contentOf(t *testing.T, events []model.Event) model.Event {
	t.Helper()
	for _, ev := range events {
		if ev.Kind == model.EventContent {
			return ev
		}
	}
	t.Fatal("no content event emitted")
	return model.Event{}
}

func TestHandleMessageHappyPath(t *testing.T) {
	cls := &stubClassifier{queue: []*model.Classification{
		{Intents: []model.CandidateIntent{{
			Name:       "create_expense",
			Confidence: 0.9,
			Seq:        1,
			Slots:      model.SlotValues{"amount": 12.5, "category": "coffee"},
		}}},
	}}
	h := newHarness(t, cls, market.Config{})
	ctx := context.Background()

	var events []model.Event
	err := h.sessions.HandleMessage(ctx, "s1", "I spent 12.50 on coffee", collect(&events))
	require.NoError(t, err)

	got := kinds(events)
	require.GreaterOrEqual(t, len(got), 3)
	assert.Equal(t, model.EventStatus, got[0])
	assert.Equal(t, model.EventComplete, got[len(got)-1])

	content := contentOf(t, events)
	assert.Contains(t, content.Content, "Recorded 12.50 USD on coffee")

	rows, err := h.ledger.ListExpenses(ctx, time.Time{}, time.Now().Add(time.Hour), "", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "coffee", rows[0].Category)
	assert.Equal(t, 12.5, rows[0].Amount)

	// user turn and assistant reply are both persisted
	n, err := h.repo.GetMessageCount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestHandleMessageMissingSlotRoundTrip(t *testing.T) {
	cls := &stubClassifier{queue: []*model.Classification{
		{Intents: []model.CandidateIntent{{
			Name:       "create_expense",
			Confidence: 0.9,
			Seq:        1,
			Slots:      model.SlotValues{"amount": 20.0},
		}}},
	}}
	h := newHarness(t, cls, market.Config{})
	ctx := context.Background()

	var events []model.Event
	require.NoError(t, h.sessions.HandleMessage(ctx, "s1", "log an expense of 20", collect(&events)))

	question := contentOf(t, events)
	assert.Contains(t, question.Content, "category")
	assert.Equal(t, 1, cls.calls)

	// the follow-up fills the slot without re-classifying
	events = nil
	require.NoError(t, h.sessions.HandleMessage(ctx, "s1", "groceries", collect(&events)))
	assert.Equal(t, 1, cls.calls)

	content := contentOf(t, events)
	assert.Contains(t, content.Content, "Recorded 20.00 USD on groceries")

	rows, err := h.ledger.ListExpenses(ctx, time.Time{}, time.Now().Add(time.Hour), "", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "groceries", rows[0].Category)
}

func TestHandleMessageRetriesThenGivesUp(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cls := &stubClassifier{queue: []*model.Classification{
		{Intents: []model.CandidateIntent{{
			Name:       "currency_conversion",
			Confidence: 0.9,
			Seq:        1,
			Slots:      model.SlotValues{"amount": 100.0, "from_currency": "USD", "to_currency": "EUR"},
		}}},
	}}
	h := newHarness(t, cls, market.Config{BaseURL: srv.URL, APIKey: "test-key"})

	var events []model.Event
	err := h.sessions.HandleMessage(context.Background(), "s1", "convert 100 USD to EUR", collect(&events))
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))

	content := contentOf(t, events)
	assert.Contains(t, content.Content, "had to give up")
	assert.Contains(t, content.Content, "3 attempts")
	assert.Equal(t, model.EventComplete, events[len(events)-1].Kind)
}

func TestHandleMessageMultiStepOrder(t *testing.T) {
	// scripted out of order; Seq decides execution order
	cls := &stubClassifier{queue: []*model.Classification{
		{Intents: []model.CandidateIntent{
			{
				Name:       "create_expense",
				Confidence: 0.8,
				Seq:        2,
				Slots:      model.SlotValues{"amount": 12.5, "category": "coffee"},
			},
			{
				Name:       "create_income",
				Confidence: 0.9,
				Seq:        1,
				Slots:      model.SlotValues{"amount": 500.0, "source": "salary"},
			},
		}},
	}}
	h := newHarness(t, cls, market.Config{})

	var events []model.Event
	err := h.sessions.HandleMessage(context.Background(), "s1", "got 500 salary and then spent 12.50 on coffee", collect(&events))
	require.NoError(t, err)

	content := contentOf(t, events)
	income := strings.Index(content.Content, "Recorded 500.00 USD from salary")
	expense := strings.Index(content.Content, "Recorded 12.50 USD on coffee")
	require.GreaterOrEqual(t, income, 0)
	require.GreaterOrEqual(t, expense, 0)
	assert.Less(t, income, expense)
}

func TestHandleMessageLowConfidenceIsConversational(t *testing.T) {
	cls := &stubClassifier{queue: []*model.Classification{
		{Intents: []model.CandidateIntent{{
			Name:       "create_expense",
			Confidence: 0.3,
			Seq:        1,
			Slots:      model.SlotValues{"amount": 12.5, "category": "coffee"},
		}}},
	}}
	h := newHarness(t, cls, market.Config{})
	ctx := context.Background()

	var events []model.Event
	require.NoError(t, h.sessions.HandleMessage(ctx, "s1", "maybe something", collect(&events)))

	content := contentOf(t, events)
	assert.Contains(t, content.Content, "What would you like to do?")

	rows, err := h.ledger.ListExpenses(ctx, time.Time{}, time.Now().Add(time.Hour), "", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestHandleMessageUnknownIntentSkipped(t *testing.T) {
	cls := &stubClassifier{queue: []*model.Classification{
		{Intents: []model.CandidateIntent{{
			Name:       "launch_rocket",
			Confidence: 0.95,
			Seq:        1,
		}}},
	}}
	h := newHarness(t, cls, market.Config{})

	var events []model.Event
	require.NoError(t, h.sessions.HandleMessage(context.Background(), "s1", "launch", collect(&events)))
	assert.Contains(t, contentOf(t, events).Content, "What would you like to do?")
}

func TestPickWinner(t *testing.T) {
	h := newHarness(t, &stubClassifier{}, market.Config{})

	t.Run("higher confidence wins", func(t *testing.T) {
		queue := h.router.pickIntents(&model.Classification{Intents: []model.CandidateIntent{
			{Name: "create_expense", Confidence: 0.7, Seq: 1, Slots: model.SlotValues{"amount": 1.0, "category": "x"}},
			{Name: "create_income", Confidence: 0.9, Seq: 1, Slots: model.SlotValues{"amount": 1.0}},
		}})
		require.Len(t, queue, 1)
		assert.Equal(t, "create_income", queue[0].spec.Name)
	})

	t.Run("tie broken by fewer missing slots", func(t *testing.T) {
		queue := h.router.pickIntents(&model.Classification{Intents: []model.CandidateIntent{
			{Name: "create_expense", Confidence: 0.8, Seq: 1, Slots: model.SlotValues{"amount": 1.0}},
			{Name: "create_income", Confidence: 0.8, Seq: 1, Slots: model.SlotValues{"amount": 1.0}},
		}})
		require.Len(t, queue, 1)
		assert.Equal(t, "create_income", queue[0].spec.Name)
	})

	t.Run("full tie broken by declaration order", func(t *testing.T) {
		queue := h.router.pickIntents(&model.Classification{Intents: []model.CandidateIntent{
			{Name: "get_balance", Confidence: 0.8, Seq: 1},
			{Name: "create_expense", Confidence: 0.8, Seq: 1, Slots: model.SlotValues{"amount": 1.0, "category": "x"}},
		}})
		require.Len(t, queue, 1)
		assert.Equal(t, "create_expense", queue[0].spec.Name)
	})
}

func TestResetClearsPendingAndHistory(t *testing.T) {
	cls := &stubClassifier{queue: []*model.Classification{
		{Intents: []model.CandidateIntent{{
			Name:       "create_expense",
			Confidence: 0.9,
			Seq:        1,
			Slots:      model.SlotValues{"amount": 20.0},
		}}},
		{Intents: []model.CandidateIntent{{
			Name:       "get_balance",
			Confidence: 0.9,
			Seq:        1,
		}}},
	}}
	h := newHarness(t, cls, market.Config{})
	ctx := context.Background()

	var events []model.Event
	require.NoError(t, h.sessions.HandleMessage(ctx, "s1", "log 20", collect(&events)))
	require.NoError(t, h.sessions.Reset(ctx, "s1"))

	n, err := h.repo.GetMessageCount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// pending state is gone, so the next message goes through classification
	events = nil
	require.NoError(t, h.sessions.HandleMessage(ctx, "s1", "what's my balance", collect(&events)))
	assert.Equal(t, 2, cls.calls)
}
