// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/catalog"
	"github.com/jeranaias/rigchat/internal/storage"
)

func validateProvider(id string) (string, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == catalog.OllamaProvider {
		return "", usageErrorf("ollama does not use an API key")
	}
	if !catalog.IsKnownProvider(id) {
		var ids []string
		for _, p := range catalog.KnownProviders {
			ids = append(ids, p.ID)
		}
		return "", usageErrorf("unknown provider %q (one of: %s)", id, strings.Join(ids, ", "))
	}
	return id, nil
}

// maskKey shows only the last four characters of a key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

func (c *CLI) newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage provider API keys",
	}

	var key string
	set := &cobra.Command{
		Use:   "set <provider>",
		Short: "Save an API key (prompts when --key is omitted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := validateProvider(args[0])
			if err != nil {
				return err
			}
			value := strings.TrimSpace(key)
			if value == "" {
				value, err = c.prompt.Secret(providerLabel(provider) + " API key:")
				if err != nil {
					return err
				}
			}
			if value == "" {
				return usageErrorf("empty key")
			}
			app, err := c.App()
			if err != nil {
				return err
			}
			if err := storage.SetAPIKey(app.Store, provider, value); err != nil {
				return err
			}
			app.Catalog.Invalidate()
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s key %s\n", providerLabel(provider), maskKey(value))
			return nil
		},
	}
	set.Flags().StringVar(&key, "key", "", "key value (visible in shell history)")

	remove := &cobra.Command{
		Use:     "remove <provider>",
		Aliases: []string{"rm"},
		Short:   "Remove a saved API key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := validateProvider(args[0])
			if err != nil {
				return err
			}
			app, err := c.App()
			if err != nil {
				return err
			}
			if err := storage.RemoveAPIKey(app.Store, provider); err != nil {
				return err
			}
			app.Catalog.Invalidate()
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s key\n", providerLabel(provider))
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List providers with a saved key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App()
			if err != nil {
				return err
			}
			ids, err := storage.ConfiguredProviders(app.Store)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if c.jsonOut {
				if ids == nil {
					ids = []string{}
				}
				return printJSON(out, ids)
			}
			if len(ids) == 0 {
				fmt.Fprintln(out, DimStyle.Render("No API keys saved."))
				return nil
			}
			for _, id := range ids {
				fmt.Fprintf(out, "%s%s\n", RenderLabel(providerLabel(id)), DimStyle.Render(maskKey(storage.APIKey(app.Store, id))))
			}
			return nil
		},
	}

	cmd.AddCommand(set, remove, list)
	return cmd
}
