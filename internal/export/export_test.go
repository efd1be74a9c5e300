// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/rigchat/internal/model"
)

func sampleDoc() Document {
	return Document{
		Chat: model.Chat{
			ID:    "c1",
			Title: "Email: Summary #1",
			Messages: []model.Message{
				{Role: model.RoleUser, Content: "Summarize this email", Timestamp: "2025-03-01T10:00:00Z"},
				{Role: model.RoleAssistant, Content: "Sure, here\n"},
			},
		},
		Project:  "Work",
		Model:    "llama3",
		Exported: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleDoc())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\n"))
	assert.Contains(t, md, "Email: Summary #1")
	assert.Contains(t, md, "messages: 2\n")
	assert.Contains(t, md, "project: Work")
	assert.Contains(t, md, "# Email: Summary \\#1\n")
	assert.Contains(t, md, "### You <sub>")
	assert.Contains(t, md, "### Assistant\n\nSure, here\n")
}

func TestMarkdownExport_NoMetadata(t *testing.T) {
	out, err := NewMarkdownExporter(&Options{}).Export(sampleDoc())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "# Email"))
	assert.Contains(t, string(out), "### You\n\n")
}

func TestMarkdownExport_EmptyChat(t *testing.T) {
	doc := sampleDoc()
	doc.Chat.Messages = nil
	out, err := NewMarkdownExporter(nil).Export(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), "*No messages.*")
}

func TestStructuredExports(t *testing.T) {
	out, err := NewJSONExporter().Export(sampleDoc())
	require.NoError(t, err)
	var rec record
	require.NoError(t, json.Unmarshal(out, &rec))
	assert.Equal(t, sampleDoc().Chat, rec.Chat)
	assert.Equal(t, "2025-03-01T12:00:00Z", rec.Exported)

	out, err = NewYAMLExporter().Export(sampleDoc())
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out, &doc))
	chat := doc["chat"].(map[string]any)
	assert.Equal(t, "Email: Summary #1", chat["title"])
	assert.Equal(t, "llama3", doc["model"])
}

func TestExportRejectsMissingID(t *testing.T) {
	for _, format := range Formats {
		ex, err := ForFormat(format, nil)
		require.NoError(t, err)
		_, err = ex.Export(Document{})
		assert.Error(t, err, format)
	}
}

func TestForFormat(t *testing.T) {
	for name, ext := range map[string]string{
		"md": ".md", "Markdown": ".md", "json": ".json", ".yml": ".yaml", "yaml": ".yaml",
	} {
		ex, err := ForFormat(name, nil)
		require.NoError(t, err, name)
		assert.Equal(t, ext, ex.FileExtension())
	}
	_, err := ForFormat("html", nil)
	assert.Error(t, err)
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	path, err := ExportToFile(sampleDoc(), NewJSONExporter(), &Options{OutputDir: filepath.Join(dir, "out")})
	require.NoError(t, err)

	assert.Equal(t, "chat_Email-_Summary_#1_20250301_120000.json", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title": "Email: Summary #1"`)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "chat", sanitizeFilename("   "))
	assert.Equal(t, "a-b-c_d", sanitizeFilename("a/b\\c d"))
	assert.Equal(t, "x-y", sanitizeFilename("x\x01y"))
	assert.Len(t, []rune(sanitizeFilename(strings.Repeat("é", 80))), 50)
}
