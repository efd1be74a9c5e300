// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// CLIENT TESTS
// =============================================================================

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithConfig(&ClientConfig{BaseURL: srv.URL + "/", Timeout: 2 * time.Second})
}

func TestCheckRunning(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Ollama is running"))
	})
	assert.NoError(t, c.CheckRunning(context.Background()))
}

func TestCheckRunning_NotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: url, Timeout: time.Second})
	err := c.CheckRunning(context.Background())
	require.Error(t, err)
	assert.True(t, IsNotRunning(err))
}

func TestListModels(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[{"name":"llama3:8b","size":4700000000,"details":{"parameter_size":"8B"}},{"name":"m1","size":12}]}`))
	})

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama3:8b", models[0].Name)
	assert.Equal(t, "8B", models[0].Details.ParameterSize)
	assert.Equal(t, "4.4 GB", models[0].FormatSize())
	assert.Equal(t, "12 B", models[1].FormatSize())
}

func TestListModels_BadStatus(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.ListModels(context.Background())
	var ce *ClientError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrTypeInvalidResponse, ce.Type)
}

func TestGenerate(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "m1", req.Model)
		assert.False(t, req.Stream)
		w.Write([]byte(`{"response":" \"Email Summary\" ","done":true}`))
	})

	out, err := c.Generate(context.Background(), "m1", "title please")
	require.NoError(t, err)
	assert.Equal(t, ` "Email Summary" `, out)
}

func TestGenerate_ServerError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"model 'x' not loaded"}`))
	})
	_, err := c.Generate(context.Background(), "x", "p")
	require.Error(t, err)
	assert.Equal(t, "model 'x' not loaded", err.Error())

	c = newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err = c.Generate(context.Background(), "x", "p")
	assert.True(t, IsModelNotFound(err))
}

func TestForHost(t *testing.T) {
	c := NewClient()
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	other := c.ForHost("http://gpu:11434/")
	assert.Equal(t, "http://gpu:11434/api/chat", other.ChatURL())
	assert.Same(t, c, c.ForHost(""))
}

func TestNewChatRequest(t *testing.T) {
	c := NewClient().ForHost("http://h:1")
	history := FromModel([]model.Message{
		{Role: model.RoleUser, Content: "q1", Timestamp: "2025-01-01T00:00:00Z"},
		{Role: model.RoleAssistant, Content: "a1"},
	})

	req := c.NewChatRequest("m1", "Be brief.", history, Message{Role: "user", Content: "q2"})

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"model":"m1",
		"stream":true,
		"host":"http://h:1",
		"messages":[
			{"role":"system","content":"Be brief."},
			{"role":"user","content":"q1"},
			{"role":"assistant","content":"a1"},
			{"role":"user","content":"q2"}
		]}`, string(data))
}

// =============================================================================
// LINE DECODER TESTS
// =============================================================================

const sample = `{"message":{"content":"Sure"}}` + "\n" + `{"message":{"content":", here"}}` + "\n"

func TestLineDecoder_WholeChunk(t *testing.T) {
	d := NewLineDecoder()
	recs := d.Feed([]byte(sample))
	assert.Equal(t, "Sure, here", Concat(recs))
	assert.Zero(t, d.Pending())
	assert.Empty(t, d.Flush())
}

func TestLineDecoder_SplitRecord(t *testing.T) {
	d := NewLineDecoder()

	first := d.Feed([]byte(`{"message":{"con`))
	assert.Empty(t, first)
	assert.Equal(t, len(`{"message":{"con`), d.Pending())

	second := d.Feed([]byte(`tent":"Hi"}}` + "\n"))
	require.Len(t, second, 1)
	assert.Equal(t, "Hi", second[0].Content)
}

func TestLineDecoder_ChunkBoundaryIndependence(t *testing.T) {
	stream := []byte(`{"message":{"content":"héllo "}}` + "\n" +
		"garbage line\n" +
		`{"message":{"content":"wörld"}}` + "\n\n" +
		`{"done":true}` + "\n" +
		`{"message":{"content":"!"}}`)

	var want string
	{
		d := NewLineDecoder()
		want = Concat(d.Feed(stream)) + Concat(d.Flush())
	}
	require.Equal(t, "héllo wörld!", want)

	for size := 1; size <= len(stream); size++ {
		d := NewLineDecoder()
		var got string
		for i := 0; i < len(stream); i += size {
			end := i + size
			if end > len(stream) {
				end = len(stream)
			}
			got += Concat(d.Feed(stream[i:end]))
		}
		got += Concat(d.Flush())
		if got != want {
			t.Fatalf("chunk size %d: got %q, want %q", size, got, want)
		}
	}
}

func TestLineDecoder_SkipsMalformed(t *testing.T) {
	d := NewLineDecoder()
	recs := d.Feed([]byte("{bad json}\n\"str\"\n" + `{"message":{"content":"ok"}}` + "\n"))
	assert.Equal(t, "ok", Concat(recs))
	assert.Equal(t, 2, d.Skipped())
}

func TestLineDecoder_FlushMalformedTail(t *testing.T) {
	d := NewLineDecoder()
	d.Feed([]byte(`{"message":{"content":"a"}}` + "\n" + `{"message":`))
	assert.Empty(t, d.Flush())
	assert.Zero(t, d.Pending())
}

func TestLineDecoder_ErrorRecord(t *testing.T) {
	d := NewLineDecoder()
	recs := d.Feed([]byte(`{"error":"out of memory"}` + "\n"))
	require.Len(t, recs, 1)
	assert.Equal(t, "out of memory", recs[0].Error)
	assert.Empty(t, recs[0].Content)
}
