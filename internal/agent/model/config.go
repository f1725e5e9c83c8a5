package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL        string `envconfig:"CONVERSATION_TTL" default:"15m"`
	Classifier struct {
		MaxTurns int `envconfig:"CONVERSATION_CLASSIFIER_MAX_TURNS" default:"5"`
	}
}

type RouterConfig struct {
	// ConfidenceThreshold is the minimum classifier confidence for a tool
	// path; anything below falls through to a direct conversational reply.
	ConfidenceThreshold float64       `envconfig:"ROUTER_CONFIDENCE_THRESHOLD" default:"0.5"`
	MaxRetries          int           `envconfig:"ROUTER_MAX_RETRIES" default:"3"`
	ToolTimeout         time.Duration `envconfig:"ROUTER_TOOL_TIMEOUT" default:"15s"`
}

type ClassifierModelConfig struct {
	Model       string  `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0.1"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.4"`
}

type ResponsePromptConfig struct {
	AssistantName string `envconfig:"PROMPT_ASSISTANT_NAME" default:"Finmate"`
	Currency      string `envconfig:"PROMPT_DEFAULT_CURRENCY" default:"USD"`
}
