package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ReportAssistant/internal/config"
	"ReportAssistant/internal/service/history"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// Client отправляет диалог в OpenRouter (OpenAI-совместимый chat completions API).
type Client struct {
	client    *openai.Client
	model     string
	maxTokens int64
	logger    *zap.SugaredLogger
}

func NewClient(cfg *config.Config, logger *zap.SugaredLogger) *Client {
	oc := openai.NewClient(
		option.WithAPIKey(cfg.OpenRouterAPIKey),
		option.WithBaseURL(cfg.OpenRouterBaseURL),
		option.WithHeader("X-Title", "Telegram AI Bot"),
	)
	return &Client{
		client:    &oc,
		model:     cfg.OpenRouterModel,
		maxTokens: int64(cfg.MaxTokens),
		logger:    logger,
	}
}

// Complete отправляет системный промпт и историю диалога, возвращает текст ответа ассистента.
func (c *Client) Complete(ctx context.Context, system string, turns []history.Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	for _, t := range turns {
		switch t.Role {
		case history.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Content))
		default:
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(c.model),
		Messages:  messages,
		MaxTokens: openai.Int(c.maxTokens),
	})
	dur := time.Since(start)
	if err != nil {
		c.logger.Errorw("Ошибка ответа OpenRouter", "duration", dur.String(), "error", err)
		return "", fmt.Errorf("openrouter: %w", err)
	}
	c.logger.Infow("Ответ OpenRouter получен", "duration", dur.String())
	if len(resp.Choices) == 0 {
		return "", errors.New("openrouter: в ответе нет choices")
	}
	return resp.Choices[0].Message.Content, nil
}
