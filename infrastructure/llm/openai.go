// Package llm adapts the OpenAI chat-completion API to the domain.Completer
// contract.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	logger "github.com/sirupsen/logrus"

	"github.com/depdoctor/depdoctor/domain"
)

const (
	clientName = "llm"

	// Low temperature keeps classification and patching deterministic-ish.
	classifyTemperature = 0.1
	classifyMaxTokens   = 500
)

// OpenAIClient implements domain.Completer on top of the OpenAI API.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

var _ domain.Completer = (*OpenAIClient)(nil)

// New creates a client for the given API key and model.
func New(apiKey, model string, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}
}

// NewWithClient creates a completer around a preconfigured API client.
func NewWithClient(client *openai.Client, model string, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{client: client, model: model, timeout: timeout}
}

// Complete sends a system + user prompt and returns the raw text response.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: classifyTemperature,
		MaxTokens:   classifyMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	return c.send(ctx, req)
}

// CompleteJSON sends a prompt in JSON-object response mode, used for patch
// generation.
func (c *OpenAIClient) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	return c.send(ctx, req)
}

func (c *OpenAIClient) send(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	logger.Debugf("[%s] Sending completion request (model %s)", clientName, c.model)
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion service returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
