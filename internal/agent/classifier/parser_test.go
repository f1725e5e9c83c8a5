package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassificationSingleIntent(t *testing.T) {
	content := `(intent<||>create_expense<||>0.92<||>1<||>{"amount": 12.5, "category": "coffee"})<|COMPLETE|>`

	cls, err := ParseClassification(content)
	require.NoError(t, err)
	require.Len(t, cls.Intents, 1)

	got := cls.Intents[0]
	assert.Equal(t, "create_expense", got.Name)
	assert.InDelta(t, 0.92, got.Confidence, 1e-9)
	assert.Equal(t, 1, got.Seq)
	assert.Equal(t, 12.5, got.Slots["amount"])
	assert.Equal(t, "coffee", got.Slots["category"])
}

func TestParseClassificationMultiStep(t *testing.T) {
	content := `(intent<||>get_balance<||>0.90<||>1<||>{})` +
		`##(intent<||>convert_currency<||>0.85<||>2<||>{"amount": 100, "from_currency": "USD", "to_currency": "EUR"})` +
		`<|COMPLETE|>`

	cls, err := ParseClassification(content)
	require.NoError(t, err)
	require.Len(t, cls.Intents, 2)
	assert.Equal(t, "get_balance", cls.Intents[0].Name)
	assert.Equal(t, 1, cls.Intents[0].Seq)
	assert.Equal(t, "convert_currency", cls.Intents[1].Name)
	assert.Equal(t, 2, cls.Intents[1].Seq)
	assert.Equal(t, "EUR", cls.Intents[1].Slots["to_currency"])
}

func TestParseClassificationIgnoresAfterComplete(t *testing.T) {
	content := `(intent<||>get_today<||>0.8<||>1<||>{})<|COMPLETE|>` +
		`##(intent<||>get_balance<||>0.9<||>2<||>{})`

	cls, err := ParseClassification(content)
	require.NoError(t, err)
	require.Len(t, cls.Intents, 1)
	assert.Equal(t, "get_today", cls.Intents[0].Name)
}

func TestParseClassificationSkipsMalformedRecords(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing parens", content: `intent<||>get_balance<||>0.9<||>1<||>{}`},
		{name: "confidence out of range", content: `(intent<||>get_balance<||>1.7<||>1<||>{})`},
		{name: "confidence not a number", content: `(intent<||>get_balance<||>high<||>1<||>{})`},
		{name: "fractional seq", content: `(intent<||>get_balance<||>0.9<||>1.5<||>{})`},
		{name: "empty name", content: `(intent<||><||>0.9<||>1<||>{})`},
		{name: "unknown tuple type", content: `(sentiment<||>positive<||>0.9<||>1<||>{})`},
		{name: "too few parts", content: `(intent<||>get_balance)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls, err := ParseClassification(tt.content + `##(intent<||>get_today<||>0.8<||>2<||>{})`)
			require.NoError(t, err)
			require.Len(t, cls.Intents, 1)
			assert.Equal(t, "get_today", cls.Intents[0].Name)
		})
	}
}

func TestParseClassificationBadSlotsFallBackEmpty(t *testing.T) {
	content := `(intent<||>create_expense<||>0.9<||>1<||>not json)`

	cls, err := ParseClassification(content)
	require.NoError(t, err)
	require.Len(t, cls.Intents, 1)
	assert.Empty(t, cls.Intents[0].Slots)
}

func TestParseClassificationOversizedTuple(t *testing.T) {
	huge := `(intent<||>get_balance<||>0.9<||>1<||>{"note": "` + strings.Repeat("x", maxTupleLen) + `"})`

	cls, err := ParseClassification(huge)
	require.NoError(t, err)
	assert.True(t, cls.None())
}

func TestParseClassificationEmptyContent(t *testing.T) {
	cls, err := ParseClassification("")
	require.NoError(t, err)
	assert.True(t, cls.None())
}
