package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/Finmate-core-poc/server/internal/agent/model"
)

//go:embed template/classifier_prompt.txt
var classifierSystemPrompt string

// RenderClassifierSystem renders the classifier system prompt via the Eino
// prompt component. This triggers prompt callbacks and returns the final
// system prompt string.
func RenderClassifierSystem(ctx context.Context, intents []*model.IntentSpec) (string, error) {
	if len(intents) == 0 {
		return "", fmt.Errorf("intent catalog is empty")
	}

	var catalog strings.Builder
	for _, spec := range intents {
		catalog.WriteString("- ")
		catalog.WriteString(spec.Name)
		catalog.WriteString(": ")
		catalog.WriteString(spec.Description)
		if len(spec.RequiredSlots) > 0 {
			catalog.WriteString(" (required slots: ")
			catalog.WriteString(strings.Join(spec.RequiredSlots, ", "))
			catalog.WriteString(")")
		}
		catalog.WriteString("\n")
	}

	// Safely render known tokens only to avoid interfering with JSON braces in template
	content := strings.NewReplacer(
		"{TD}", "<||>",
		"{RD}", "##",
		"{CD}", "<|COMPLETE|>",
		"{intent_catalog}", catalog.String(),
	).Replace(classifierSystemPrompt)

	// Wrap via Eino prompt component using a messages placeholder to emit callbacks
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("classifier prompt callbacks: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("classifier prompt callbacks: empty result")
	}
	return msgs[0].Content, nil
}
