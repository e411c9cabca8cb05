package translation

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/brandonnmartinsj/TradingAgents/config"
)

// ChatModel is the part of an eino chat model the translator needs.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// NewChatModel builds the chat model of the configured LLM provider.
func NewChatModel(ctx context.Context, cfg *config.Config, tc Config) (ChatModel, error) {
	apiKey, err := cfg.LLMAPIKey()
	if err != nil {
		return nil, err
	}
	tc = tc.withDefaults()

	switch cfg.LLMProvider {
	case "deepseek":
		modelName := tc.Model
		if modelName == DefaultModel {
			modelName = "deepseek-chat"
		}
		cm, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:    apiKey,
			Model:     modelName,
			MaxTokens: tc.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("create deepseek model: %w", err)
		}
		return cm, nil
	case "", "openai":
		maxTokens := tc.MaxTokens
		mc := &openai.ChatModelConfig{
			APIKey:    apiKey,
			Model:     tc.Model,
			MaxTokens: &maxTokens,
		}
		if cfg.BackendURL != "" {
			mc.BaseURL = cfg.BackendURL
		}
		cm, err := openai.NewChatModel(ctx, mc)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		return cm, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}
