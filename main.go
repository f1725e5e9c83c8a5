package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Finmate-core-poc/server/internal/agent/classifier"
	"github.com/Finmate-core-poc/server/internal/agent/composer"
	"github.com/Finmate-core-poc/server/internal/agent/conversations"
	"github.com/Finmate-core-poc/server/internal/agent/executor"
	"github.com/Finmate-core-poc/server/internal/agent/llm"
	"github.com/Finmate-core-poc/server/internal/agent/model"
	"github.com/Finmate-core-poc/server/internal/agent/registry"
	"github.com/Finmate-core-poc/server/internal/agent/repo"
	"github.com/Finmate-core-poc/server/internal/agent/router"
	"github.com/Finmate-core-poc/server/internal/collab/market"
	"github.com/Finmate-core-poc/server/internal/collab/persistence"
	"github.com/Finmate-core-poc/server/internal/collab/sandbox"
	"github.com/Finmate-core-poc/server/internal/core"
	"github.com/Finmate-core-poc/server/internal/server"
	logx "github.com/Finmate-core-poc/server/pkg/logger"
	pkgredis "github.com/Finmate-core-poc/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the assistant, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis  pkgredis.Config
	Server server.Config
	Sqlite persistence.Config `envconfig:"SQLITE"`

	// External services
	ExchangeRate market.Config      `envconfig:"EXCHANGE_RATE"`
	Quotes       market.QuoteConfig `envconfig:"QUOTES"`
	Sandbox      sandbox.Config     `envconfig:"SANDBOX"`

	// LLM provider; optional, the rule classifier covers local runs
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Classifier   model.ClassifierModelConfig
	Response     model.ResponseModelConfig
	Prompt       model.ResponsePromptConfig
	Router       model.RouterConfig
	Conversation model.ConversationConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env})

	rdb, err := cfg.Redis.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise Redis client")
	}
	defer rdb.Close()

	ttl, err := time.ParseDuration(cfg.Conversation.TTL)
	if err != nil {
		logx.Fatal().Err(err).Str("ttl", cfg.Conversation.TTL).Msg("invalid CONVERSATION_TTL")
	}

	ledger, err := persistence.Open(ctx, cfg.Sqlite)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to open ledger database")
	}
	defer ledger.Close()

	reg, err := registry.Build(registry.Deps{
		Ledger:  ledger,
		Rates:   market.NewClient(cfg.ExchangeRate),
		Quotes:  market.NewQuoteClient(cfg.Quotes),
		Sandbox: sandbox.NewClient(cfg.Sandbox),
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to build tool registry")
	}

	conversationRepo := repo.NewRedisConversationRepository(rdb, ttl)
	manager := conversations.NewMessagesManager(conversationRepo, cfg.Conversation)

	var cls classifier.Classifier
	var comp *composer.Composer
	if cfg.APIKey != "" {
		models, err := llm.NewChatModels(ctx, llm.Config{
			APIKey:           cfg.APIKey,
			BaseURL:          cfg.BaseURL,
			ClassifierConfig: &cfg.Classifier,
			ResponseConfig:   &cfg.Response,
		})
		if err != nil {
			logx.Fatal().Err(err).Msg("failed to create chat models")
		}
		cls, err = classifier.NewLLMClassifier(ctx, models.Classifier, models.ClassifierModelName, reg.Intents())
		if err != nil {
			logx.Fatal().Err(err).Msg("failed to create classifier")
		}
		comp = composer.New(models.Response, models.ResponseModelName, manager, cfg.Prompt)
	} else {
		logx.Warn().Msg("GEMINI_API_KEY not set, using rule classifier and deterministic replies")
		cls = classifier.NewRuleClassifier(reg.Intents())
		comp = composer.New(nil, "", manager, cfg.Prompt)
	}

	exec := executor.New(reg, cfg.Router.ToolTimeout)
	rt := router.New(cls, exec, comp, manager, reg, cfg.Router)
	sessions := router.NewSessionManager(rt)

	srv := server.New(cfg.Server, env, sessions)
	logx.Info().
		Str("addr", cfg.Server.Addr).
		Str("environment", env.String()).
		Msg("finmate server starting")
	if err := srv.Run(); err != nil {
		logx.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
