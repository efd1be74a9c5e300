// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client and wire types for the Ollama API.
//
// The client covers the non-streaming calls (liveness, model tags, title
// generation). Streaming chat goes through the transport package; this
// package supplies the request body and the LineDecoder that turns the
// NDJSON response into content fragments.
//
// # Key Types
//
//   - Client: liveness, ListModels and Generate against one host
//   - ChatRequest: body for POST /api/chat
//   - LineDecoder: incremental NDJSON splitter that carries partial lines
//     across chunk boundaries
//
// # Usage
//
//	client := ollama.NewClient().ForHost("http://localhost:11434")
//	models, err := client.ListModels(ctx)
//
//	dec := ollama.NewLineDecoder()
//	for _, rec := range dec.Feed(chunk) {
//	    fmt.Print(rec.Content)
//	}
//	for _, rec := range dec.Flush() {
//	    fmt.Print(rec.Content)
//	}
package ollama
