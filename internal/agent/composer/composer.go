package composer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Finmate-core-poc/server/internal/agent/conversations"
	"github.com/Finmate-core-poc/server/internal/agent/model"
	"github.com/Finmate-core-poc/server/internal/agent/prompts"
	logx "github.com/Finmate-core-poc/server/pkg/logger"
)

// Composer turns tool results into the final outbound message: exactly one
// narrative plus the structured blocks, ordered by tool execution order.
// With a chat model it narrates via the LLM; without one (or when the call
// fails) it falls back to a deterministic summary so the user always gets
// an answer.
type Composer struct {
	chat      einomodel.BaseChatModel
	modelName string
	manager   *conversations.MessagesManager
	promptCfg model.ResponsePromptConfig
}

func New(chat einomodel.BaseChatModel, modelName string, manager *conversations.MessagesManager, promptCfg model.ResponsePromptConfig) *Composer {
	return &Composer{
		chat:      chat,
		modelName: modelName,
		manager:   manager,
		promptCfg: promptCfg,
	}
}

// Compose builds the reply for one decision cycle and persists it as the
// assistant turn.
func (c *Composer) Compose(ctx context.Context, sessionID string, results []*model.ToolResult) (*model.OutboundMessage, error) {
	out := &model.OutboundMessage{}

	for _, res := range results {
		if res.OK() {
			out.Blocks = append(out.Blocks, ExtractBlocks(res.Payload)...)
		}
	}

	narrative := c.narrate(ctx, sessionID, results)
	if narrative == "" {
		narrative = fallbackNarrative(results)
	}
	out.Narrative = narrative

	if err := c.manager.SaveResponse(ctx, sessionID, narrative); err != nil {
		return nil, err
	}
	return out, nil
}

// ComposeDirect produces a plain conversational reply with no tool results,
// used for the "none" intent path and clarifying questions.
func (c *Composer) ComposeDirect(ctx context.Context, sessionID string, text string) (*model.OutboundMessage, error) {
	if err := c.manager.SaveResponse(ctx, sessionID, text); err != nil {
		return nil, err
	}
	return &model.OutboundMessage{Narrative: text}, nil
}

func (c *Composer) narrate(ctx context.Context, sessionID string, results []*model.ToolResult) string {
	if c.chat == nil {
		return ""
	}

	sys, err := prompts.RenderResponseSystem(ctx, c.promptCfg)
	if err != nil {
		logx.Error().Err(err).Str("component", "composer").Msg("render response prompt failed")
		return ""
	}

	messages, err := c.manager.BuildResponseContext(ctx, sessionID, sys)
	if err != nil {
		logx.Error().Err(err).Str("component", "composer").Msg("build response context failed")
		return ""
	}
	if len(results) > 0 {
		messages = append(messages, schema.UserMessage(resultsContext(results)))
	}

	resp, err := c.chat.Generate(ctx, messages)
	if err != nil {
		logx.Warn().Err(err).Str("component", "composer").Msg("response model call failed, falling back")
		return ""
	}

	logUsage(c.modelName, resp)
	return strings.TrimSpace(resp.Content)
}

// resultsContext renders tool results for the response model.
func resultsContext(results []*model.ToolResult) string {
	var b strings.Builder
	b.WriteString("<tool_results>\n")
	for _, res := range results {
		if res.OK() {
			fmt.Fprintf(&b, "ToolSuccess(%s: %s)\n", res.Call.Tool, res.Payload)
		} else {
			fmt.Fprintf(&b, "ToolFailure(%s: %s)\n", res.Call.Tool, res.Failure.Error())
		}
	}
	b.WriteString("</tool_results>")
	return b.String()
}

// fallbackNarrative is the deterministic reply when model narration is
// unavailable. It prefers the summary field tools emit, then raw payload.
func fallbackNarrative(results []*model.ToolResult) string {
	var parts []string
	for _, res := range results {
		if !res.OK() {
			if res.Failure.Kind == model.FailureLoopLimit {
				parts = append(parts, fmt.Sprintf("I retried that but had to give up: %s.", res.Failure.Message))
			} else {
				parts = append(parts, fmt.Sprintf("I couldn't finish that: %s.", res.Failure.Message))
			}
			continue
		}
		if s := payloadSummary(res.Payload); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "I can help you track expenses, subscriptions, bills, and savings goals, or look up exchange rates and stock prices. What would you like to do?"
	}
	return strings.Join(parts, " ")
}

func payloadSummary(payload string) string {
	var probe struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(payload), &probe); err == nil && probe.Summary != "" {
		return probe.Summary
	}
	trimmed := strings.TrimSpace(payload)
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return trimmed
}

func logUsage(modelName string, resp *schema.Message) {
	if resp == nil || resp.ResponseMeta == nil || resp.ResponseMeta.Usage == nil {
		return
	}
	usage := resp.ResponseMeta.Usage
	var cost model.TurnCost
	cost.Add(usage, model.ResolvePricing(modelName))
	logx.Debug().
		Str("component", "composer").
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Float64("cost_usd", cost.Total()).
		Msg("response model call")
}
