// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// =============================================================================
// TOOL KINDS
// =============================================================================

// Kind identifies a tool.
type Kind string

const (
	EmailWriter      Kind = "email-writer"
	TweetGenerator   Kind = "tweet-generator"
	SentenceBuilder  Kind = "sentence-builder"
	TextSummarizer   Kind = "text-summarizer"
	ContentRewriter  Kind = "content-rewriter"
	BlogGenerator    Kind = "blog-generator"
	CaptionGenerator Kind = "caption-generator"
	GrammarChecker   Kind = "grammar-checker"
)

// DefaultSystemPrompt is used for a kind without its own prompt.
const DefaultSystemPrompt = "You are a helpful AI assistant."

// Tool describes one kind.
type Tool struct {
	Kind         Kind
	Name         string
	OptionLabel  string
	Options      []string
	SystemPrompt string

	prompt *template.Template
}

func newTool(kind Kind, name, optionLabel string, options []string, system, prompt string) Tool {
	return Tool{
		Kind:         kind,
		Name:         name,
		OptionLabel:  optionLabel,
		Options:      options,
		SystemPrompt: system,
		prompt:       template.Must(template.New(string(kind)).Funcs(sprig.TxtFuncMap()).Parse(prompt)),
	}
}

var registry = []Tool{
	newTool(EmailWriter, "Email Writer", "Tone",
		[]string{"professional", "friendly", "formal", "casual", "persuasive"},
		"You are a professional email writing assistant. Write clear, concise, and professional emails based on the user's requirements.",
		`Write a single {{ .Option | lower }} email about: {{ .Input | trim }}`),
	newTool(TweetGenerator, "Tweet Generator", "Style",
		[]string{"engaging", "informative", "humorous", "inspirational", "promotional"},
		"You are a Twitter expert. Create engaging, concise tweets that capture attention and encourage interaction.",
		`Write one {{ .Option | lower }} tweet about: {{ .Input | trim }}`),
	newTool(SentenceBuilder, "Sentence Builder", "Style",
		[]string{"clear", "formal", "creative", "simple", "academic"},
		"You are a sentence builder expert. Convert ideas into well-structured, clear sentences.",
		`Convert this idea into one {{ .Option | lower }} sentence: {{ .Input | trim }}`),
	newTool(TextSummarizer, "Text Summarizer", "Length",
		[]string{"brief", "detailed", "bullet-point", "executive"},
		"You are a text summarizer expert. Create concise summaries that capture the key points of the content.",
		`Provide a concise {{ .Option | lower }} summary of the following: {{ .Input | trim }}`),
	newTool(ContentRewriter, "Content Rewriter", "Style",
		[]string{"clearer", "more engaging", "more formal", "simpler", "shorter"},
		"You are a content rewriter expert. Rewrite content to improve clarity, engagement, and readability.",
		`Rewrite this content into a single, {{ .Option | lower }} version: {{ .Input | trim }}`),
	newTool(BlogGenerator, "Blog Generator", "Tone",
		[]string{"informative", "conversational", "professional", "storytelling"},
		"You are a blog generator expert. Create engaging, well-structured blog posts with clear introductions, body content, and conclusions.",
		`Write one {{ .Option | lower }} blog post about: {{ .Input | trim }}`),
	newTool(CaptionGenerator, "Caption Generator", "Platform",
		[]string{"instagram", "linkedin", "facebook", "tiktok"},
		"You are a caption generator expert. Create compelling social media captions that engage audiences and encourage interaction.",
		`Write one {{ .Option | lower }} social media caption for: {{ .Input | trim }}`),
	newTool(GrammarChecker, "Grammar Checker", "Mode",
		[]string{"standard", "strict"},
		"You are a grammar expert. Check and correct grammar, spelling, and punctuation errors while maintaining the original meaning.",
		`Check and return the corrected version of this text: {{ .Input | trim }}`),
}

// All returns every tool in display order.
func All() []Tool {
	return append([]Tool(nil), registry...)
}

// Lookup returns the tool for kind.
func Lookup(kind Kind) (Tool, bool) {
	for _, t := range registry {
		if t.Kind == kind {
			return t, true
		}
	}
	return Tool{}, false
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := Lookup(k); !ok {
		return "", fmt.Errorf("unknown tool %q", s)
	}
	return k, nil
}

// SystemPromptFor returns the system prompt of kind, or DefaultSystemPrompt.
func SystemPromptFor(kind Kind) string {
	if t, ok := Lookup(kind); ok && t.SystemPrompt != "" {
		return t.SystemPrompt
	}
	return DefaultSystemPrompt
}

// BuildPrompt renders the prompt for input. Without an option the trimmed
// input is returned as is.
func BuildPrompt(kind Kind, input, option string) (string, error) {
	base := strings.TrimSpace(input)
	if option == "" {
		return base, nil
	}
	t, ok := Lookup(kind)
	if !ok {
		return base, nil
	}

	var sb strings.Builder
	data := struct{ Input, Option string }{Input: input, Option: strings.TrimSpace(option)}
	if err := t.prompt.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", kind, err)
	}
	return sb.String(), nil
}
