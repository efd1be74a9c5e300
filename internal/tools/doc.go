// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools implements the one-shot content tools (email writer,
// summarizer, ...).
//
// Each Kind maps to a prompt template and a system prompt. A Generator sends
// the rendered prompt to a remote provider through its OpenAI-compatible
// API, or to the local Ollama host through its /v1 endpoint.
//
// # Key Types
//
//   - Kind: closed set of tool kinds
//   - Request: one generation request
//   - Result: tagged outcome with content, usage and error details
//   - Generator: runs requests against providers
package tools
