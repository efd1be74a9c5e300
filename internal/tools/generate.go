// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/catalog"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/storage"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1500

	// ErrMissingInput is the Result.Error for a request without input or
	// a required key.
	ErrMissingInput = "Missing prompt, tool, or API key"
	// ErrGenerationFailed is the Result.Error when the provider call fails.
	ErrGenerationFailed = "Failed to generate content"
)

// defaultModels per remote provider.
var defaultModels = map[string]string{
	"openai":    "gpt-4o",
	"anthropic": "claude-3-opus-20240229",
	"google":    "gemini-1.5-pro",
	"cohere":    "command-r-plus",
}

// Request is one tool run.
type Request struct {
	Kind   Kind
	Input  string
	Option string

	// Provider defaults to "openai".
	Provider string
	// Model defaults to the provider's default model; for ollama, to the
	// saved model preference.
	Model string
	// APIKey overrides the key saved for Provider.
	APIKey string

	Temperature *float32
	MaxTokens   int
}

// Usage reports token counts.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Result is the tagged outcome of a run.
type Result struct {
	Success  bool   `json:"success"`
	Content  string `json:"content,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Usage    *Usage `json:"usage,omitempty"`
	Error    string `json:"error,omitempty"`
	Details  string `json:"details,omitempty"`
}

// Options configures a Generator.
type Options struct {
	HTTPClient *http.Client
	// BaseURLs overrides provider endpoints, including "ollama".
	BaseURLs map[string]string
	// DefaultHost is the Ollama host used when none is saved.
	DefaultHost string
}

// Generator runs tool requests.
type Generator struct {
	store    storage.Store
	http     *http.Client
	baseURLs map[string]string
	defHost  string
	log      *zap.Logger
}

// NewGenerator creates a generator reading keys and the host from store.
func NewGenerator(store storage.Store, opts Options, log *zap.Logger) *Generator {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Generator{
		store:    store,
		http:     httpClient,
		baseURLs: opts.BaseURLs,
		defHost:  opts.DefaultHost,
		log:      logging.OrNop(log).Named("tools"),
	}
}

func (g *Generator) baseURL(provider string) string {
	if u, ok := g.baseURLs[provider]; ok {
		return u
	}
	if provider == catalog.OllamaProvider {
		host := storage.Host(g.store)
		if host == "" {
			host = g.defHost
		}
		if host == "" {
			host = storage.DefaultHost
		}
		return strings.TrimRight(host, "/") + "/v1"
	}
	return catalog.DefaultProviderBaseURL(provider)
}

// Generate runs req. It never returns an error; failures are reported in
// the Result.
func (g *Generator) Generate(ctx context.Context, req Request) Result {
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		provider = "openai"
	}

	key := req.APIKey
	if key == "" {
		key = storage.APIKey(g.store, provider)
	}
	if provider == catalog.OllamaProvider {
		key = "ollama"
	}
	if strings.TrimSpace(req.Input) == "" || key == "" {
		return Result{Error: ErrMissingInput}
	}
	if !catalog.IsKnownProvider(provider) {
		return Result{Error: ErrGenerationFailed, Details: fmt.Sprintf("Provider %s not supported", provider)}
	}

	prompt, err := BuildPrompt(req.Kind, req.Input, req.Option)
	if err != nil {
		return Result{Error: ErrGenerationFailed, Details: err.Error()}
	}

	modelName := req.Model
	if modelName == "" {
		if provider == catalog.OllamaProvider {
			modelName = storage.SelectedModel(g.store)
		} else {
			modelName = defaultModels[provider]
		}
	}
	if modelName == "" {
		return Result{Error: ErrGenerationFailed, Details: "no model selected"}
	}

	temperature := float32(DefaultTemperature)
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	config := openai.DefaultConfig(key)
	config.BaseURL = g.baseURL(provider)
	config.HTTPClient = g.http
	client := openai.NewClientWithConfig(config)

	chatReq := openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPromptFor(req.Kind)},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	}
	// Cohere and Ollama run without a token cap.
	if provider != "cohere" && provider != catalog.OllamaProvider {
		chatReq.MaxTokens = maxTokens
	}

	resp, err := client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		g.log.Warn("generation failed", zap.String("provider", provider), zap.String("model", modelName), zap.Error(err))
		return Result{Error: ErrGenerationFailed, Details: err.Error()}
	}
	if len(resp.Choices) == 0 {
		return Result{Error: ErrGenerationFailed, Details: "empty response"}
	}

	return Result{
		Success:  true,
		Content:  resp.Choices[0].Message.Content,
		Provider: provider,
		Model:    modelName,
		Usage: &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}
