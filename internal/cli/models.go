// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/catalog"
	"github.com/jeranaias/rigchat/internal/transport"
)

func (c *CLI) newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "models",
		Aliases: []string{"ls"},
		Short:   "List models installed on the Ollama host",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App()
			if err != nil {
				return err
			}
			res := app.Catalog.Models(cmd.Context())
			out := cmd.OutOrStdout()
			if c.jsonOut {
				return printJSON(out, res)
			}
			if !res.OK() {
				return &CommandError{Command: "models", Action: "list", Reason: "ollama unreachable at " + app.Catalog.Host(), Err: errors.New(res.Error)}
			}
			if len(res.Models) == 0 {
				fmt.Fprintln(out, WarningStyle.Render("No models installed. Pull one with `ollama pull <model>`."))
				return nil
			}

			selected := app.Catalog.SelectModel(res.Models)
			for _, m := range res.Models {
				marker := "  "
				name := column(m.Name, 32)
				if m.Name == selected {
					marker = HighlightStyle.Render("* ")
					name = HighlightStyle.Render(name)
				}
				fmt.Fprintf(out, "%s%s %s %s\n", marker, name,
					DimStyle.Render(column(m.Details.ParameterSize, 8)),
					DimStyle.Render(m.FormatSize()))
			}
			return nil
		},
	}
}

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"s"},
		Short:   "Show backend and provider status",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App()
			if err != nil {
				return err
			}
			st := app.Catalog.Status(cmd.Context())
			out := cmd.OutOrStdout()
			if c.jsonOut {
				return printJSON(out, st)
			}

			fmt.Fprintln(out, TitleStyle.Render("rigchat status"))
			fmt.Fprintln(out, RenderSeparator(40))
			fmt.Fprintf(out, "%s%s %s\n", RenderLabel("Ollama"), RenderStatus(st.OllamaOnline), ValueStyle.Render(app.Catalog.Host()))
			fmt.Fprintf(out, "%s%s\n", RenderLabel("Model"), ValueStyle.Render(orNone(app.Sessions.Model())))
			fmt.Fprintf(out, "%s%s\n", RenderLabel("Store"), ValueStyle.Render(app.Config.Store.Backend))
			fmt.Fprintf(out, "%s%s\n", RenderLabel("Transport"), ValueStyle.Render(transportLabel(app.Transport)))
			fmt.Fprintf(out, "%s%d\n", RenderLabel("Conversations"), len(app.Sessions.Chats()))
			fmt.Fprintf(out, "%s%d\n", RenderLabel("Projects"), len(app.Index.Projects()))
			if st.Error != "" {
				fmt.Fprintf(out, "%s%s\n", RenderLabel("Error"), ErrorStyle.Render(st.Error))
			}

			if len(st.AIProviders) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, TitleStyle.Render("Providers"))
				for _, p := range st.AIProviders {
					fmt.Fprintf(out, "%s%d models\n", RenderLabel(p.Label), len(p.Models))
					for _, m := range p.Models {
						fmt.Fprintf(out, "  %s %s\n", column(m.ID, 36), DimStyle.Render(m.Description))
					}
				}
			}
			return nil
		},
	}
}

func transportLabel(k transport.Kind) string {
	if k == transport.KindBridged {
		return "bridge (in-process event bus)"
	}
	return "direct HTTP"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// providerLabel returns the display name of a provider id.
func providerLabel(id string) string {
	if id == catalog.OllamaProvider {
		return "Ollama (Local)"
	}
	for _, p := range catalog.KnownProviders {
		if p.ID == id {
			return p.Label
		}
	}
	return id
}
