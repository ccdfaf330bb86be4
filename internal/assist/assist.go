// Package assist is an optional LLM fallback for queries the rule-based
// path cannot answer. The model is constrained to the business-info JSON;
// anything outside it must come back as exactly "I am not sure", which the
// agent treats as unanswered.
package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"salon-agent/internal/business"
)

// Unsure is the exact refusal the system prompt demands from the model.
const Unsure = "I am not sure"

// DefaultBaseURL targets Groq's OpenAI-compatible API.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

const defaultModel = "llama3-8b-8192"

// historyLimit bounds the per-assistant conversation history so a long
// call cannot grow the prompt without bound.
const historyLimit = 20

// Assistant answers customer queries from the business data via an
// OpenAI-compatible chat API, keeping a bounded conversation history.
type Assistant struct {
	client       *openai.Client
	model        string
	systemPrompt string

	mu      sync.Mutex
	history []openai.ChatCompletionMessage
}

// Config for the assistant. APIKey is required; BaseURL and Model default
// to Groq and its llama3 model.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// New builds an assistant for the given business info.
func New(cfg Config, info *business.Info) (*Assistant, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("assistant API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if clientCfg.BaseURL == "" {
		clientCfg.BaseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	prompt, err := systemPrompt(info)
	if err != nil {
		return nil, err
	}

	return &Assistant{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        model,
		systemPrompt: prompt,
	}, nil
}

// systemPrompt embeds the business data and forbids the model from
// inventing anything beyond it.
func systemPrompt(info *business.Info) (string, error) {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode business info: %w", err)
	}

	return fmt.Sprintf(
		"You are the AI assistant for %s.\n"+
			"You must use **only** the information between <<<JSON>>> and <<<END JSON>>>\n"+
			"Do NOT add, infer, or invent any details not present in that data.\n"+
			"If asked about anything outside that data, respond exactly:\n"+
			"%s\n\n"+
			"<<<JSON>>>\n%s\n<<<END JSON>>>",
		info.Name, Unsure, data), nil
}

// Answer asks the model and returns (reply, answered). answered is false
// when the model declined with the refusal phrase.
func (a *Assistant) Answer(ctx context.Context, query string) (string, bool, error) {
	a.mu.Lock()
	a.history = append(a.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: query,
	})
	if len(a.history) > historyLimit {
		a.history = a.history[len(a.history)-historyLimit:]
	}
	messages := make([]openai.ChatCompletionMessage, 0, len(a.history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: a.systemPrompt,
	})
	messages = append(messages, a.history...)
	a.mu.Unlock()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: 0,
	})
	if err != nil {
		return "", false, fmt.Errorf("assistant completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", false, fmt.Errorf("assistant returned no choices")
	}

	reply := resp.Choices[0].Message.Content

	a.mu.Lock()
	a.history = append(a.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: reply,
	})
	a.mu.Unlock()

	return reply, !strings.Contains(reply, Unsure), nil
}
