// Package ai wraps the optional AI-assisted tool group's language-model
// collaborator. It is constructed only when an API key is configured
// (§4.H: "Absence of an optional group does not fail startup").
package ai

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Client summarizes stored analysis or memory-recall text via an
// Anthropic model. The default model is fixed rather than configurable
// since the tool group exists for one narrow purpose (summarization),
// not general chat.
type Client struct {
	client *anthropic.Client
	model  anthropic.Model
}

// New builds a Client from an API key. An empty key is rejected; the
// caller decides whether its absence should skip registering the tool
// group entirely rather than constructing a Client that can never work.
func New(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ai: empty API key")
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Client{client: &c, model: anthropic.ModelClaude3_5SonnetLatest}, nil
}

// Complete sends prompt as a single user turn and returns the model's
// text response.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("ai: complete: %w", err)
	}
	if len(message.Content) == 0 {
		return "", nil
	}
	return message.Content[0].Text, nil
}
