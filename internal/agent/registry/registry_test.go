package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Finmate-core-poc/server/internal/collab/market"
	"github.com/Finmate-core-poc/server/internal/collab/persistence"
	"github.com/Finmate-core-poc/server/internal/collab/sandbox"
)

func buildTestRegistry(t *testing.T) *Registry {
	t.Helper()

	ledger, err := persistence.Open(context.Background(), persistence.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	r, err := Build(Deps{
		Ledger:  ledger,
		Rates:   market.NewClient(market.Config{}),
		Quotes:  market.NewQuoteClient(market.QuoteConfig{}),
		Sandbox: sandbox.NewClient(sandbox.Config{}),
	})
	require.NoError(t, err)
	return r
}

func TestBuildBindsEveryIntent(t *testing.T) {
	r := buildTestRegistry(t)

	intents := r.Intents()
	require.NotEmpty(t, intents)

	for _, spec := range intents {
		entry, ok := r.Tool(spec.Tool)
		assert.True(t, ok, "intent %s bound to missing tool %s", spec.Name, spec.Tool)
		require.NotNil(t, entry.Info)
		assert.NotEmpty(t, entry.Info.Desc, "tool %s has no description", spec.Tool)
		assert.NotNil(t, entry.Schema, "tool %s has no compiled schema", spec.Tool)
		assert.NotEmpty(t, spec.Description, "intent %s has no description", spec.Name)
	}
}

func TestToolLookup(t *testing.T) {
	r := buildTestRegistry(t)

	entry, ok := r.Tool("create_expense")
	require.True(t, ok)
	assert.Equal(t, "create_expense", entry.Info.Name)

	_, ok = r.Tool("no_such_tool")
	assert.False(t, ok)
}

func TestIntentLookupAndRank(t *testing.T) {
	r := buildTestRegistry(t)

	spec, ok := r.Intent("create_expense")
	require.True(t, ok)
	assert.Equal(t, "create_expense", spec.Tool)
	assert.Contains(t, spec.RequiredSlots, "amount")

	assert.Equal(t, 0, r.IntentRank(r.Intents()[0].Name))
	assert.Equal(t, len(r.Intents()), r.IntentRank("no_such_intent"))
}

func TestCompiledSchemaEnforcesRequired(t *testing.T) {
	r := buildTestRegistry(t)

	entry, ok := r.Tool("create_expense")
	require.True(t, ok)

	res, err := entry.Schema.Validate(gojsonschema.NewStringLoader(`{}`))
	require.NoError(t, err)
	assert.False(t, res.Valid())

	res, err = entry.Schema.Validate(gojsonschema.NewStringLoader(`{"amount": 12.5, "category": "coffee"}`))
	require.NoError(t, err)
	assert.True(t, res.Valid(), "errors: %v", res.Errors())
}

func TestCompiledSchemaRejectsWrongType(t *testing.T) {
	r := buildTestRegistry(t)

	entry, ok := r.Tool("create_expense")
	require.True(t, ok)

	res, err := entry.Schema.Validate(gojsonschema.NewStringLoader(`{"amount": "a lot", "category": "coffee"}`))
	require.NoError(t, err)
	assert.False(t, res.Valid())
}
