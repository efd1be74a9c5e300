// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/catalog"
	"github.com/jeranaias/rigchat/internal/tools"
)

func (c *CLI) newToolCmd() *cobra.Command {
	var opts struct {
		option      string
		provider    string
		model       string
		temperature float32
		maxTokens   int
	}

	var kinds []string
	for _, t := range tools.All() {
		kinds = append(kinds, string(t.Kind))
	}

	cmd := &cobra.Command{
		Use:   "tool <kind> <input...>",
		Short: "Run a writing tool against a provider",
		Long: `Run a one-shot writing tool.

Kinds: ` + strings.Join(kinds, ", ") + `

Input "-" reads from stdin. The provider's API key must be saved with
"rigchat keys set" unless the provider is ollama.`,
		Example: `  rigchat tool email-writer -o Formal "ask for a deadline extension"
  rigchat tool text-summarizer --provider ollama - < notes.txt`,
		Args:      cobra.MinimumNArgs(2),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := tools.ParseKind(args[0])
			if err != nil {
				return usageErrorf("%v (one of: %s)", err, strings.Join(kinds, ", "))
			}
			tool, _ := tools.Lookup(kind)
			if opts.option != "" && !containsFold(tool.Options, opts.option) {
				return usageErrorf("%s does not accept %s %q (one of: %s)", kind, strings.ToLower(tool.OptionLabel), opts.option, strings.Join(tool.Options, ", "))
			}

			input := strings.Join(args[1:], " ")
			if input == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				input = string(data)
			}

			app, err := c.App()
			if err != nil {
				return err
			}

			req := tools.Request{
				Kind:     kind,
				Input:    input,
				Option:   opts.option,
				Provider: opts.provider,
				Model:    opts.model,
			}
			if cmd.Flags().Changed("temperature") {
				req.Temperature = &opts.temperature
			}
			if opts.maxTokens > 0 {
				req.MaxTokens = opts.maxTokens
			}
			if strings.EqualFold(opts.provider, catalog.OllamaProvider) && req.Model == "" {
				if err := ensureModel(cmd.Context(), app, ""); err != nil {
					return err
				}
				req.Model = app.Sessions.Model()
			}

			res := app.Tools.Generate(cmd.Context(), req)
			out := cmd.OutOrStdout()
			if c.jsonOut {
				if err := printJSON(out, res); err != nil {
					return err
				}
			}
			if !res.Success {
				cerr := &CommandError{Command: "tool", Action: string(kind), Reason: res.Error}
				if res.Details != "" {
					cerr.Err = errors.New(res.Details)
				}
				return cerr
			}
			if !c.jsonOut {
				fmt.Fprintln(out, res.Content)
				if res.Usage != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), DimStyle.Render(fmt.Sprintf("%s · %s · %d tokens", res.Provider, res.Model, res.Usage.TotalTokens)))
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.option, "option", "o", "", "tool option (tone, style, length...)")
	flags.StringVar(&opts.provider, "provider", "openai", "provider id (openai, anthropic, google, cohere, ollama)")
	flags.StringVar(&opts.model, "model", "", "model id (default: the provider's default)")
	flags.Float32Var(&opts.temperature, "temperature", tools.DefaultTemperature, "sampling temperature")
	flags.IntVar(&opts.maxTokens, "max-tokens", 0, "completion token cap")
	return cmd
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
