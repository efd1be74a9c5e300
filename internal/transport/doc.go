// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport opens streaming HTTP requests and hands back the response
// as a sequence of raw byte chunks.
//
// Two implementations satisfy Transport:
//
//   - Direct: a plain net/http request; chunks are body reads.
//   - Bridged: the request is handed to a Bridge host that performs it and
//     publishes stream-chunk-<id>, stream-error-<id> and
//     stream-complete-<id> events on a watermill pub/sub. The client
//     subscribes to the three topics and tears the subscriptions down
//     exactly once, on error, completion, start failure or Close.
//
// Callers read with Stream.Next until io.EOF (normal end) or another error,
// and cancel by cancelling the context given to Open.
package transport
