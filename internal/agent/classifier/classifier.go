package classifier

import (
	"context"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Finmate-core-poc/server/internal/agent/model"
	"github.com/Finmate-core-poc/server/internal/agent/prompts"
	logx "github.com/Finmate-core-poc/server/pkg/logger"
)

// Classifier turns a user message (with conversation context) into scored
// intent candidates. Implementations never fail on unclassifiable input;
// they return an empty Classification instead.
type Classifier interface {
	// Classify analyzes the prepared conversation context.
	Classify(ctx context.Context, conversationContext string) (*model.Classification, error)

	// ExtractSlots pulls slot values out of a short follow-up reply while
	// a spec is pending. asked names the slot the user was prompted for.
	ExtractSlots(ctx context.Context, text string, spec *model.IntentSpec, asked string) (model.SlotValues, error)
}

// LLMClassifier drives a chat model that emits the delimited-tuple format.
type LLMClassifier struct {
	chat         einomodel.BaseChatModel
	systemPrompt string
	modelName    string
}

// NewLLMClassifier renders the system prompt for the given intent catalog
// once; the catalog is static after registry build.
func NewLLMClassifier(ctx context.Context, chat einomodel.BaseChatModel, modelName string, intents []*model.IntentSpec) (*LLMClassifier, error) {
	sys, err := prompts.RenderClassifierSystem(ctx, intents)
	if err != nil {
		return nil, err
	}
	return &LLMClassifier{chat: chat, systemPrompt: sys, modelName: modelName}, nil
}

func (c *LLMClassifier) Classify(ctx context.Context, conversationContext string) (*model.Classification, error) {
	messages := []*schema.Message{
		schema.SystemMessage(c.systemPrompt),
		schema.UserMessage(conversationContext),
	}

	resp, err := c.chat.Generate(ctx, messages)
	if err != nil {
		return nil, err
	}

	logUsage(c.modelName, resp)

	cls, err := ParseClassification(resp.Content)
	if err != nil {
		return nil, err
	}
	if cls.None() {
		logx.Debug().
			Str("component", "classifier").
			Str("raw", safeSnippet(resp.Content)).
			Msg("no usable intents in model output")
	}
	return cls, nil
}

func (c *LLMClassifier) ExtractSlots(ctx context.Context, text string, spec *model.IntentSpec, asked string) (model.SlotValues, error) {
	// Short slot-fill replies rarely classify on their own; deterministic
	// extraction is both cheaper and more reliable here.
	return ExtractSlotValues(text, spec, asked), nil
}

func logUsage(modelName string, resp *schema.Message) {
	if resp == nil || resp.ResponseMeta == nil || resp.ResponseMeta.Usage == nil {
		return
	}
	usage := resp.ResponseMeta.Usage
	var cost model.TurnCost
	cost.Add(usage, model.ResolvePricing(modelName))
	logx.Debug().
		Str("component", "classifier").
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Float64("cost_usd", cost.Total()).
		Msg("classifier model call")
}
