package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient implements Client with the OpenAI chat completions API.
type OpenAIClient struct {
	client chatClient
	model  string
}

// NewOpenAIAPI builds the go-openai client, honouring an optional base URL for
// compatible gateways.
func NewOpenAIAPI(apiKey, baseURL string) (*openai.Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("completion: openai api key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg), nil
}

func NewOpenAIClient(client chatClient, model string) *OpenAIClient {
	if client == nil {
		panic("completion: openai chat client cannot be nil")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{client: client, model: model}
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.System)+len(req.Messages))
	for _, block := range req.System {
		if strings.TrimSpace(block) == "" {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: block})
	}
	for _, msg := range req.Messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		var role string
		switch msg.Role {
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		case RoleUser:
			role = openai.ChatMessageRoleUser
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		default:
			return Response{}, fmt.Errorf("completion: unsupported role %q", msg.Role)
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: content})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = int(req.MaxTokens)
	}
	if req.Temperature >= 0 {
		chatReq.Temperature = req.Temperature
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return Response{}, fmt.Errorf("completion: openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, errors.New("completion: openai returned no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Response{}, errors.New("completion: openai returned empty content")
	}
	return Response{
		Text:       text,
		StopReason: string(resp.Choices[0].FinishReason),
		Usage: Usage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}, nil
}
