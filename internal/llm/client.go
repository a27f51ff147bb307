// Package llm talks to the chat-completion backend used for answering
// customer questions and summarizing business descriptions.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const requestTimeout = 60 * time.Second

// summarizeThreshold is the business-info length above which the text is
// compressed before being embedded into prompts
const summarizeThreshold = 1000

// Client answers prompts through an OpenAI-compatible chat API
type Client struct {
	api    *openai.Client
	model  string
	logger *zap.Logger
}

// New creates a client for an OpenAI-compatible endpoint
func New(apiKey, baseURL, model string, logger *zap.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

// Complete sends one system+user exchange and returns the reply text
func (c *Client) Complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Summarize compresses long business text, keeping facts a customer bot
// needs. Short text is returned unchanged.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	if len([]rune(text)) <= summarizeThreshold {
		return text, nil
	}

	system := "Сожми описание бизнеса, сохранив все факты: услуги, цены, адреса, " +
		"контакты, часы работы. Убери воду и повторы. Отвечай только сжатым текстом."

	summary, err := c.Complete(ctx, system, text, 0.2)
	if err != nil {
		c.logger.Warn("business info summarization failed, using raw text", zap.Error(err))
		return text, nil
	}
	return summary, nil
}
