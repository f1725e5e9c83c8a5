package executor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Finmate-core-poc/server/internal/agent/model"
	"github.com/Finmate-core-poc/server/internal/agent/registry"
	"github.com/Finmate-core-poc/server/internal/collab/market"
	"github.com/Finmate-core-poc/server/internal/collab/persistence"
	"github.com/Finmate-core-poc/server/internal/collab/sandbox"
)

func newTestExecutor(t *testing.T, rates market.Config, timeout time.Duration) *Executor {
	t.Helper()

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
	return New(reg, timeout)
}

func TestExecuteUnknownTool(t *testing.T) {
	e := newTestExecutor(t, market.Config{}, 0)

	res := e.Execute(context.Background(), model.ToolCall{ID: "c1", Tool: "no_such_tool"})
	require.NotNil(t, res.Failure)
	assert.Equal(t, model.FailurePermanent, res.Failure.Kind)
	assert.False(t, res.Failure.Recoverable())
	assert.False(t, res.OK())
}

func TestExecuteMissingRequiredParameter(t *testing.T) {
	e := newTestExecutor(t, market.Config{}, 0)

	res := e.Execute(context.Background(), model.ToolCall{
		ID:        "c1",
		Tool:      "create_expense",
		Arguments: model.SlotValues{"amount": 12.5},
	})
	require.NotNil(t, res.Failure)
	assert.Equal(t, model.FailureMissingParameter, res.Failure.Kind)
	assert.Equal(t, "category", res.Failure.Slot)
	assert.True(t, res.Failure.Recoverable())
}

func TestExecuteInvalidParameterFromTool(t *testing.T) {
	e := newTestExecutor(t, market.Config{}, 0)

	res := e.Execute(context.Background(), model.ToolCall{
		ID:        "c1",
		Tool:      "create_expense",
		Arguments: model.SlotValues{"amount": -5.0, "category": "coffee"},
	})
	require.NotNil(t, res.Failure)
	assert.Equal(t, model.FailureInvalidParameter, res.Failure.Kind)
	assert.Equal(t, "amount", res.Failure.Slot)
	assert.True(t, res.Failure.Recoverable())
}

func TestExecuteUnsupportedCurrency(t *testing.T) {
	e := newTestExecutor(t, market.Config{}, 0)

	res := e.Execute(context.Background(), model.ToolCall{
		ID:   "c1",
		Tool: "convert_currency",
		Arguments: model.SlotValues{
			"amount": 100.0, "from_currency": "XXX", "to_currency": "USD",
		},
	})
	require.NotNil(t, res.Failure)
	assert.Equal(t, model.FailureInvalidParameter, res.Failure.Kind)
	assert.Equal(t, "from_currency", res.Failure.Slot)
}

func TestExecuteSuccess(t *testing.T) {
	e := newTestExecutor(t, market.Config{}, 0)

	res := e.Execute(context.Background(), model.ToolCall{
		ID:        "c1",
		Tool:      "create_expense",
		Arguments: model.SlotValues{"amount": 12.5, "category": "coffee"},
	})
	require.Nil(t, res.Failure)
	assert.True(t, res.OK())
	assert.Contains(t, res.Payload, "12.5")
	assert.Contains(t, res.Payload, "coffee")
}

func TestExecuteUpstreamFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := newTestExecutor(t, market.Config{BaseURL: srv.URL, APIKey: "test-key"}, 0)

	res := e.Execute(context.Background(), model.ToolCall{
		ID:   "c1",
		Tool: "convert_currency",
		Arguments: model.SlotValues{
			"amount": 100.0, "from_currency": "USD", "to_currency": "EUR",
		},
	})
	require.NotNil(t, res.Failure)
	assert.Equal(t, model.FailureTransient, res.Failure.Kind)
	assert.True(t, res.Failure.Recoverable())
}

func TestExecuteTimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{"result":"success","conversion_rate":0.9,"conversion_result":90}`)
	}))
	defer srv.Close()

	e := newTestExecutor(t, market.Config{BaseURL: srv.URL, APIKey: "test-key"}, 20*time.Millisecond)

	res := e.Execute(context.Background(), model.ToolCall{
		ID:   "c1",
		Tool: "convert_currency",
		Arguments: model.SlotValues{
			"amount": 100.0, "from_currency": "USD", "to_currency": "EUR",
		},
	})
	require.NotNil(t, res.Failure)
	assert.Equal(t, model.FailureTransient, res.Failure.Kind)
}
