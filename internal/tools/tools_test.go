// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/storage"
)

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		kind          Kind
		input, option string
		want          string
	}{
		{EmailWriter, "  a raise ", "Formal", "Write a single formal email about: a raise"},
		{TweetGenerator, "launch day", "humorous", "Write one humorous tweet about: launch day"},
		{TextSummarizer, "long text", "brief", "Provide a concise brief summary of the following: long text"},
		{ContentRewriter, "draft", "simpler", "Rewrite this content into a single, simpler version: draft"},
		{GrammarChecker, "i has a cat", "strict", "Check and return the corrected version of this text: i has a cat"},
		{CaptionGenerator, "sunset", "", "sunset"},
		{BlogGenerator, "  untouched  ", "", "untouched"},
	}
	for _, tt := range tests {
		got, err := BuildPrompt(tt.kind, tt.input, tt.option)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, string(tt.kind))
	}
}

func TestKinds(t *testing.T) {
	assert.Len(t, All(), 8)

	k, err := ParseKind(" Email-Writer ")
	require.NoError(t, err)
	assert.Equal(t, EmailWriter, k)

	_, err = ParseKind("poem-generator")
	assert.Error(t, err)

	assert.Contains(t, SystemPromptFor(GrammarChecker), "grammar expert")
	assert.Equal(t, DefaultSystemPrompt, SystemPromptFor(Kind("other")))

	for _, tool := range All() {
		assert.NotEmpty(t, tool.Options, tool.Kind)
		assert.NotEmpty(t, tool.Name, tool.Kind)
	}
}

type capturedRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionServer(t *testing.T, got *capturedRequest, auth *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		if auth != nil {
			*auth = r.Header.Get("Authorization")
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1", "object": "chat.completion", "model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Dear team,"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate_OpenAI(t *testing.T) {
	var got capturedRequest
	var auth string
	srv := completionServer(t, &got, &auth)

	store := storage.NewMemoryStore()
	require.NoError(t, storage.SetAPIKey(store, "openai", "sk-test"))
	g := NewGenerator(store, Options{BaseURLs: map[string]string{"openai": srv.URL}}, nil)

	res := g.Generate(context.Background(), Request{Kind: EmailWriter, Input: "a raise", Option: "formal"})
	require.True(t, res.Success, res.Details)
	assert.Equal(t, "Dear team,", res.Content)
	assert.Equal(t, "openai", res.Provider)
	assert.Equal(t, "gpt-4o", res.Model)
	assert.Equal(t, &Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15}, res.Usage)

	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4o", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 0.0001)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "email writing assistant")
	assert.Equal(t, "Write a single formal email about: a raise", got.Messages[1].Content)
}

func TestGenerate_OllamaNeedsNoKey(t *testing.T) {
	var got capturedRequest
	var auth string
	srv := completionServer(t, &got, &auth)

	store := storage.NewMemoryStore()
	require.NoError(t, storage.SetSelectedModel(store, "llama3"))
	g := NewGenerator(store, Options{BaseURLs: map[string]string{"ollama": srv.URL}}, nil)

	res := g.Generate(context.Background(), Request{Kind: TextSummarizer, Input: "text", Provider: "ollama"})
	require.True(t, res.Success, res.Details)
	assert.Equal(t, "llama3", got.Model)
	assert.Equal(t, "Bearer ollama", auth)
	assert.Zero(t, got.MaxTokens)
	assert.Equal(t, "text", got.Messages[1].Content)
}

func TestGenerate_OllamaBaseURLFromHost(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, storage.SetHost(store, "http://box:11434/"))
	g := NewGenerator(store, Options{}, nil)
	assert.Equal(t, "http://box:11434/v1", g.baseURL("ollama"))
	assert.Equal(t, "https://api.openai.com/v1", g.baseURL("openai"))
}

func TestGenerate_MissingKey(t *testing.T) {
	g := NewGenerator(storage.NewMemoryStore(), Options{}, nil)

	res := g.Generate(context.Background(), Request{Kind: EmailWriter, Input: "x", Provider: "anthropic"})
	assert.False(t, res.Success)
	assert.Equal(t, ErrMissingInput, res.Error)

	res = g.Generate(context.Background(), Request{Kind: EmailWriter, Input: "  ", Provider: "ollama"})
	assert.Equal(t, ErrMissingInput, res.Error)
}

func TestGenerate_UnsupportedProvider(t *testing.T) {
	g := NewGenerator(storage.NewMemoryStore(), Options{}, nil)
	res := g.Generate(context.Background(), Request{Kind: EmailWriter, Input: "x", Provider: "mistral", APIKey: "k"})
	assert.False(t, res.Success)
	assert.Equal(t, ErrGenerationFailed, res.Error)
	assert.Equal(t, "Provider mistral not supported", res.Details)
}

func TestGenerate_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	g := NewGenerator(storage.NewMemoryStore(), Options{BaseURLs: map[string]string{"cohere": srv.URL}}, nil)
	res := g.Generate(context.Background(), Request{Kind: BlogGenerator, Input: "x", Provider: "cohere", APIKey: "bad"})
	assert.False(t, res.Success)
	assert.Equal(t, ErrGenerationFailed, res.Error)
	assert.Contains(t, res.Details, "invalid api key")
}
