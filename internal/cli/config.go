// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/catalog"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/storage"
)

func (c *CLI) configFilePath() (string, error) {
	if c.configPath != "" {
		return c.configPath, nil
	}
	return config.ConfigPathTOML()
}

func (c *CLI) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change settings",
		Long: `Show and change settings.

"get" and "set" edit the configuration file. "set-host", "set-system" and
"set-model" save preferences in the store, where the interface reads them.`,
	}
	cmd.AddCommand(
		c.newConfigShowCmd(),
		c.newConfigGetCmd(),
		c.newConfigSetCmd(),
		c.newConfigPathCmd(),
		c.newSetHostCmd(),
		c.newSetSystemCmd(),
		c.newSetModelCmd(),
	)
	return cmd
}

func (c *CLI) newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show configuration and saved preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			prefs := map[string]string{
				"host":          app.Sessions.Host(),
				"model":         storage.SelectedModel(app.Store),
				"system_prompt": app.Sessions.SystemPrompt(),
			}
			if c.jsonOut {
				return printJSON(out, map[string]any{"config": app.Config, "preferences": prefs})
			}

			fmt.Fprintln(out, TitleStyle.Render("Preferences"))
			fmt.Fprintf(out, "%s%s\n", RenderLabel("Host"), ValueStyle.Render(prefs["host"]))
			fmt.Fprintf(out, "%s%s\n", RenderLabel("Model"), ValueStyle.Render(orNone(prefs["model"])))
			fmt.Fprintf(out, "%s%s\n", RenderLabel("System prompt"), ValueStyle.Render(prefs["system_prompt"]))
			fmt.Fprintln(out)
			fmt.Fprintln(out, TitleStyle.Render("Configuration"))
			for _, key := range config.Keys() {
				v, _ := app.Config.Get(key)
				fmt.Fprintf(out, "%s%v\n", LabelStyle.Copy().Width(26).Render(key), v)
			}
			return nil
		},
	}
}

func (c *CLI) newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "get <key>",
		Short:     "Print one configuration value",
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.setup(); err != nil {
				return err
			}
			v, err := c.cfg.Get(args[0])
			if err != nil {
				return usageErrorf("%v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func (c *CLI) newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one configuration value and save the file",
		Example: `  rigchat config set store.backend sqlite
  rigchat config set ui.markdown false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.configFilePath()
			if err != nil {
				return err
			}
			// Edit the file contents, not the environment-adjusted view.
			isJSON := strings.HasSuffix(path, ".json")
			cfg := config.Default()
			if exists(path) {
				load := config.LoadTOML
				if isJSON {
					load = config.LoadJSON
				}
				if err := load(cfg, path); err != nil {
					return err
				}
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return usageErrorf("%v", err)
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}
			save := config.SaveTOML
			if isJSON {
				save = config.SaveJSON
			}
			if err := save(cfg, path); err != nil {
				return err
			}
			v, _ := cfg.Get(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", args[0], v)
			return nil
		},
	}
}

func (c *CLI) newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.configFilePath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func (c *CLI) newSetHostCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "set-host <url>",
		Short: "Save the Ollama host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host := strings.TrimSpace(args[0])
			if !strings.Contains(host, "://") {
				host = "http://" + host
			}
			if u, err := url.Parse(host); err != nil || u.Host == "" {
				return usageErrorf("invalid host %q", args[0])
			}
			app, err := c.App()
			if err != nil {
				return err
			}
			if err := storage.SetHost(app.Store, host); err != nil {
				return err
			}
			app.Catalog.Invalidate()
			fmt.Fprintf(cmd.OutOrStdout(), "Host set to %s\n", app.Catalog.Host())

			if check {
				if res := app.Catalog.Models(cmd.Context()); !res.OK() {
					fmt.Fprintln(cmd.OutOrStdout(), WarningStyle.Render("Warning: host not reachable: "+res.Error))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", true, "check that the host answers")
	return cmd
}

func (c *CLI) newSetSystemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-system <prompt...>",
		Short: "Save the system prompt sent ahead of every conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.TrimSpace(strings.Join(args, " "))
			if prompt == "" {
				return usageErrorf("system prompt must not be blank")
			}
			app, err := c.App()
			if err != nil {
				return err
			}
			if err := app.Sessions.SetSystemPrompt(prompt); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "System prompt saved")
			return nil
		},
	}
}

func (c *CLI) newSetModelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-model <name>",
		Short: "Save the preferred model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App()
			if err != nil {
				return err
			}
			name := args[0]
			res := app.Catalog.Models(cmd.Context())
			if res.OK() && catalog.SelectModel(name, res.Models) != name {
				return usageErrorf("model %q is not installed on %s", name, app.Catalog.Host())
			}
			if err := app.Sessions.SetModel(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model set to %s\n", name)
			return nil
		},
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
