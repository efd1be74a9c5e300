// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/rigchat/internal/model"
)

// record is the structured shape shared by the JSON and YAML exporters.
// The chat is kept in its stored form so exports can be re-imported.
type record struct {
	Chat     model.Chat `json:"chat" yaml:"chat"`
	Project  string     `json:"project,omitempty" yaml:"project,omitempty"`
	Model    string     `json:"model,omitempty" yaml:"model,omitempty"`
	Exported string     `json:"exported" yaml:"exported"`
}

func toRecord(doc Document) record {
	return record{
		Chat:     doc.Chat,
		Project:  doc.Project,
		Model:    doc.Model,
		Exported: doc.Exported.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports the full conversation as indented JSON.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Export converts a conversation to JSON.
func (e *JSONExporter) Export(doc Document) ([]byte, error) {
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(toRecord(doc), "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

// =============================================================================
// YAML EXPORTER
// =============================================================================

// YAMLExporter exports the full conversation as YAML.
type YAMLExporter struct{}

// NewYAMLExporter creates a new YAML exporter.
func NewYAMLExporter() *YAMLExporter {
	return &YAMLExporter{}
}

// Export converts a conversation to YAML.
func (e *YAMLExporter) Export(doc Document) ([]byte, error) {
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return yaml.Marshal(toRecord(doc))
}

// FileExtension returns the file extension for YAML.
func (e *YAMLExporter) FileExtension() string {
	return ".yaml"
}

// MimeType returns the MIME type for YAML.
func (e *YAMLExporter) MimeType() string {
	return "application/yaml"
}
