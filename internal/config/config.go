// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigchat configuration.
type Config struct {
	Ollama    OllamaConfig    `toml:"ollama" json:"ollama"`
	Store     StoreConfig     `toml:"store" json:"store"`
	Transport TransportConfig `toml:"transport" json:"transport"`
	UI        UIConfig        `toml:"ui" json:"ui"`
	Log       LogConfig       `toml:"log" json:"log"`
	Catalog   CatalogConfig   `toml:"catalog" json:"catalog"`
}

// OllamaConfig configures the local model server.
type OllamaConfig struct {
	// Host is used when the store has no saved host.
	Host string `toml:"host" json:"host" validate:"required,url"`
	// TimeoutSecs bounds non-streaming requests (model list, titles).
	// Chat streams have no timeout.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" validate:"gte=1,lte=3600"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Backend is one of "file", "sqlite", "redis", "memory".
	Backend string `toml:"backend" json:"backend" validate:"oneof=file sqlite redis memory"`
	// Path of the file or sqlite store (empty = inside the config dir).
	Path string `toml:"path" json:"path"`
	// RedisURL is required for the redis backend.
	RedisURL string `toml:"redis_url" json:"redis_url" validate:"required_if=Backend redis"`
	// Namespace prefixes redis keys.
	Namespace string `toml:"namespace" json:"namespace"`
	// Watch reloads the TUI when the file store changes on disk.
	Watch bool `toml:"watch" json:"watch"`
}

// TransportConfig selects how chat streams are carried.
type TransportConfig struct {
	// Mode is "auto", "direct" or "bridge".
	Mode string `toml:"mode" json:"mode" validate:"oneof=auto direct bridge"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// RenderIntervalMs is the minimum gap between streaming renders.
	RenderIntervalMs int `toml:"render_interval_ms" json:"render_interval_ms" validate:"gte=1,lte=1000"`
	// Markdown renders finished assistant messages as markdown.
	Markdown bool `toml:"markdown" json:"markdown"`
	// AutoTitle names new conversations from their first message.
	AutoTitle bool `toml:"auto_title" json:"auto_title"`
	// Theme is the glamour style: "dark", "light", "auto".
	Theme string `toml:"theme" json:"theme" validate:"oneof=dark light auto"`
}

// LogConfig configures the log file.
type LogConfig struct {
	Level string `toml:"level" json:"level" validate:"oneof=debug info warn error"`
	// File is the log path (empty = rigchat.log in the config dir).
	File string `toml:"file" json:"file"`
}

// CatalogConfig configures model list caching.
type CatalogConfig struct {
	// CacheTTLSecs is how long model lists are reused. 0 disables caching.
	CacheTTLSecs int `toml:"cache_ttl_secs" json:"cache_ttl_secs" validate:"gte=0"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Ollama: OllamaConfig{
			Host:        "http://localhost:11434",
			TimeoutSecs: 30,
		},
		Store: StoreConfig{
			Backend:   "file",
			Namespace: "rigchat:",
			Watch:     true,
		},
		Transport: TransportConfig{
			Mode: "auto",
		},
		UI: UIConfig{
			RenderIntervalMs: 32,
			Markdown:         true,
			AutoTitle:        true,
			Theme:            "dark",
		},
		Log: LogConfig{
			Level: "info",
		},
		Catalog: CatalogConfig{
			CacheTTLSecs: 30,
		},
	}
}

// OllamaTimeout returns Ollama.TimeoutSecs as a duration.
func (c *Config) OllamaTimeout() time.Duration {
	return time.Duration(c.Ollama.TimeoutSecs) * time.Second
}

// RenderInterval returns UI.RenderIntervalMs as a duration.
func (c *Config) RenderInterval() time.Duration {
	return time.Duration(c.UI.RenderIntervalMs) * time.Millisecond
}

// CatalogTTL returns the model list cache TTL; negative means disabled.
func (c *Config) CatalogTTL() time.Duration {
	if c.Catalog.CacheTTLSecs == 0 {
		return -1
	}
	return time.Duration(c.Catalog.CacheTTLSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// HomeEnv overrides the configuration directory.
const HomeEnv = "RIGCHAT_HOME"

// ConfigDir returns the rigchat configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// LogPath returns the log file path, defaulting into the config dir.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rigchat.log"), nil
}

// ensureSecurePermissions tightens a config file to 0600. It may hold a
// redis URL with credentials.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads .env from the working directory and from the config
// directory. Variables already set win. Missing files are ignored.
func LoadDotEnv() error {
	candidates := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}
	if path, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	return cfg, cfg.finish()
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Paths ending in .json are read as JSON, anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	c.ApplyEnvOverrides()
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// SetDefaults fills empty values and normalizes case.
func (c *Config) SetDefaults() {
	d := Default()

	c.Ollama.Host = strings.TrimRight(strings.TrimSpace(c.Ollama.Host), "/")
	if c.Ollama.Host == "" {
		c.Ollama.Host = d.Ollama.Host
	}
	if c.Ollama.TimeoutSecs == 0 {
		c.Ollama.TimeoutSecs = d.Ollama.TimeoutSecs
	}

	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = d.Store.Backend
	}
	if c.Store.Namespace == "" {
		c.Store.Namespace = d.Store.Namespace
	}

	c.Transport.Mode = strings.ToLower(strings.TrimSpace(c.Transport.Mode))
	if c.Transport.Mode == "" {
		c.Transport.Mode = d.Transport.Mode
	}

	if c.UI.RenderIntervalMs == 0 {
		c.UI.RenderIntervalMs = d.UI.RenderIntervalMs
	}
	c.UI.Theme = strings.ToLower(c.UI.Theme)
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# rigchat configuration file\n")
	sb.WriteString("# Conversations and preferences are kept in the store, not here.\n\n")
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies RIGCHAT_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RIGCHAT_OLLAMA_HOST"); v != "" {
		c.Ollama.Host = v
	} else if v := os.Getenv("OLLAMA_HOST"); v != "" {
		if !strings.Contains(v, "://") {
			v = "http://" + v
		}
		c.Ollama.Host = v
	}
	if v := os.Getenv("RIGCHAT_STORE"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("RIGCHAT_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("RIGCHAT_REDIS_URL"); v != "" {
		c.Store.RedisURL = v
	}
	if v := os.Getenv("RIGCHAT_TRANSPORT"); v != "" {
		c.Transport.Mode = v
	}
	if v := os.Getenv("RIGCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("RIGCHAT_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("RIGCHAT_MARKDOWN"); v != "" {
		c.UI.Markdown = parseBool(v)
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value using dot notation (e.g., "ui.render_interval_ms").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a value using dot notation. The result is not validated; call
// Validate before saving.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every settable key in dot notation.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		prefix := tagName(section)
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, prefix+"."+tagName(section.Type.Field(j)))
		}
	}
	return keys
}

func tagName(f reflect.StructField) string {
	name := strings.Split(f.Tag.Get("toml"), ",")[0]
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	return name
}
