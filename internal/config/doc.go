// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and saves the rigchat configuration file.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RIGCHAT_*), including those set by a .env file
//   - ~/.rigchat/config.toml
//   - ~/.rigchat/config.json
//   - Built-in defaults
//
// RIGCHAT_HOME relocates the configuration directory.
//
// The configuration file holds process settings only. Conversations,
// projects and user preferences (host, model, system prompt, API keys) live
// in the store selected by the [store] section.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	host := cfg.Ollama.Host
package config
