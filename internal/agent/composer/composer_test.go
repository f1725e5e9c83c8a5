package composer

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Finmate-core-poc/server/internal/agent/conversations"
	"github.com/Finmate-core-poc/server/internal/agent/model"
	"github.com/Finmate-core-poc/server/internal/agent/repo"
)

func newTestComposer(t *testing.T) (*Composer, *conversations.MessagesManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	conversationRepo := repo.NewRedisConversationRepository(rdb, time.Minute)
	cfg := model.ConversationConfig{}
	cfg.Classifier.MaxTurns = 5
	manager := conversations.NewMessagesManager(conversationRepo, cfg)

	c := New(nil, "", manager, model.ResponsePromptConfig{AssistantName: "Finmate", Currency: "USD"})
	return c, manager
}

func TestExtractBlocksFromJSONPayload(t *testing.T) {
	payload := `{
		"summary": "spending by category",
		"chart": {"type": "pie", "title": "Spending", "data": [{"name": "coffee", "value": 42.5}]},
		"table": {"title": "Spending", "columns": ["Category", "Total"], "rows": [["coffee", "42.50"]]}
	}`

	blocks := ExtractBlocks(payload)
	require.Len(t, blocks, 2)

	assert.Equal(t, model.BlockChart, blocks[0].Kind)
	require.NotNil(t, blocks[0].Chart)
	assert.Equal(t, "pie", blocks[0].Chart.Kind)
	require.Len(t, blocks[0].Chart.Data, 1)
	assert.Equal(t, "coffee", blocks[0].Chart.Data[0].Name)
	assert.Equal(t, 42.5, blocks[0].Chart.Data[0].Value)

	assert.Equal(t, model.BlockTable, blocks[1].Kind)
	require.NotNil(t, blocks[1].Table)
	assert.Equal(t, []string{"Category", "Total"}, blocks[1].Table.Columns)
}

func TestExtractBlocksFromFencedChart(t *testing.T) {
	payload := "Here is the breakdown:\n```chart\n" +
		`{"type": "bar", "title": "Goals", "data": [{"name": "Trip", "value": 300}]}` +
		"\n```\nDone."

	blocks := ExtractBlocks(payload)
	require.Len(t, blocks, 1)
	assert.Equal(t, model.BlockChart, blocks[0].Kind)
	assert.Equal(t, "bar", blocks[0].Chart.Kind)
	assert.Equal(t, "Goals", blocks[0].Chart.Title)
}

func TestExtractBlocksPlainText(t *testing.T) {
	assert.Empty(t, ExtractBlocks("nothing structured here"))
	assert.Empty(t, ExtractBlocks(`{"summary": "no blocks"}`))
}

func TestComposeFallbackSummary(t *testing.T) {
	c, _ := newTestComposer(t)

	results := []*model.ToolResult{
		{
			Call:    model.ToolCall{Tool: "create_expense"},
			Payload: `{"summary": "Logged 12.50 USD under coffee."}`,
		},
	}

	out, err := c.Compose(context.Background(), "s1", results)
	require.NoError(t, err)
	assert.Equal(t, "Logged 12.50 USD under coffee.", out.Narrative)
	assert.Empty(t, out.Blocks)
}

func TestComposeCollectsBlocksInOrder(t *testing.T) {
	c, _ := newTestComposer(t)

	results := []*model.ToolResult{
		{
			Call:    model.ToolCall{Tool: "get_spending_by_category"},
			Payload: `{"summary": "breakdown", "chart": {"type": "pie", "title": "Spending", "data": [{"name": "a", "value": 1}]}}`,
		},
		{
			Call:    model.ToolCall{Tool: "list_expenses"},
			Payload: `{"summary": "2 expenses", "table": {"columns": ["When", "Amount"], "rows": [["today", "5.00"]]}}`,
		},
	}

	out, err := c.Compose(context.Background(), "s1", results)
	require.NoError(t, err)
	require.Len(t, out.Blocks, 2)
	assert.Equal(t, model.BlockChart, out.Blocks[0].Kind)
	assert.Equal(t, model.BlockTable, out.Blocks[1].Kind)
	assert.Equal(t, "breakdown 2 expenses", out.Narrative)
}

func TestComposeFailureNarrative(t *testing.T) {
	c, _ := newTestComposer(t)

	results := []*model.ToolResult{
		{
			Call:    model.ToolCall{Tool: "get_stock_price"},
			Failure: &model.Failure{Kind: model.FailureTransient, Message: "the quote service is unavailable"},
		},
	}

	out, err := c.Compose(context.Background(), "s1", results)
	require.NoError(t, err)
	assert.Equal(t, "I couldn't finish that: the quote service is unavailable.", out.Narrative)
	assert.Empty(t, out.Blocks)
}

func TestComposeLoopLimitNarrative(t *testing.T) {
	c, _ := newTestComposer(t)

	results := []*model.ToolResult{
		{
			Call:    model.ToolCall{Tool: "convert_currency"},
			Failure: &model.Failure{Kind: model.FailureLoopLimit, Message: "kept failing after 3 attempts (upstream service failed)"},
		},
	}

	out, err := c.Compose(context.Background(), "s1", results)
	require.NoError(t, err)
	assert.Equal(t, "I retried that but had to give up: kept failing after 3 attempts (upstream service failed).", out.Narrative)
	assert.Empty(t, out.Blocks)
}

func TestComposeNoResultsHelpText(t *testing.T) {
	c, manager := newTestComposer(t)
	ctx := context.Background()

	out, err := c.Compose(ctx, "s1", nil)
	require.NoError(t, err)
	assert.Contains(t, out.Narrative, "What would you like to do?")

	// the reply is persisted as the assistant turn
	messages, err := manager.BuildResponseContext(ctx, "s1", "sys")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, out.Narrative, messages[1].Content)
}

func TestComposeDirect(t *testing.T) {
	c, manager := newTestComposer(t)
	ctx := context.Background()

	out, err := c.ComposeDirect(ctx, "s1", "Which category should I use?")
	require.NoError(t, err)
	assert.Equal(t, "Which category should I use?", out.Narrative)

	messages, err := manager.BuildResponseContext(ctx, "s1", "sys")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Which category should I use?", messages[1].Content)
}
