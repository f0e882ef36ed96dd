package builtin

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

const mockResponsePrefix = "[MOCK LLM RESPONSE]"

// llmNode calls a chat-completions endpoint. The base URL and API key are
// read from the environment (OPENAI_BASE_URL, OPENAI_API_KEY). Any
// transport or protocol failure is substituted by a clearly-marked mock
// response; the node never fails the workflow.
type llmNode struct {
	id     string
	client *openai.Client
}

func newLLMNode(id string) *llmNode {
	return &llmNode{id: id}
}

func (n *llmNode) ID() string   { return n.id }
func (n *llmNode) Type() string { return "llm" }

func (n *llmNode) Run(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	model := toString(inputs["model"])
	if model == "" {
		model = openai.GPT4o
	}
	prompt := toString(inputs["prompt"])
	temperature := toFloat(inputs["temperature"], 0.7)
	maxTokens := toInt(inputs["max_tokens"], 1000)

	text, usage, err := n.complete(ctx, model, prompt, float32(temperature), maxTokens)
	if err != nil {
		log.Warn().Str("node", n.id).Str("model", model).Err(err).Msg("llm call failed, falling back to mock response")
		text = mockResponsePrefix + " Based on the search results, here is the solution for your '" +
			model + "' query.\n\n(Real API call failed, this is a simulation.)"
		usage = map[string]any{"prompt_tokens": 0, "completion_tokens": 0, "total_tokens": 0}
	}

	return map[string]any{"text": text, "usage": usage, "model": model}, nil
}

func (n *llmNode) complete(ctx context.Context, model, prompt string, temperature float32, maxTokens int) (string, map[string]any, error) {
	client, err := n.resolveClient()
	if err != nil {
		return "", nil, err
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", nil, err
	}
	if len(resp.Choices) == 0 {
		return "", nil, errors.New("empty choices in completion response")
	}

	usage := map[string]any{
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"total_tokens":      resp.Usage.TotalTokens,
	}
	return resp.Choices[0].Message.Content, usage, nil
}

func (n *llmNode) resolveClient() (*openai.Client, error) {
	if n.client != nil {
		return n.client, nil
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	return openai.NewClientWithConfig(cfg), nil
}
