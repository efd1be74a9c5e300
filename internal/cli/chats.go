// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/export"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/session"
)

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveChat finds a conversation by id or unique id prefix.
func resolveChat(app *App, ref string) (model.Chat, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Chat{}, usageErrorf("conversation id required")
	}
	var matches []model.Chat
	for _, chat := range app.Sessions.Chats() {
		if chat.ID == ref {
			return chat, nil
		}
		if strings.HasPrefix(chat.ID, ref) {
			matches = append(matches, chat)
		}
	}
	switch len(matches) {
	case 0:
		return model.Chat{}, fmt.Errorf("%w: %s", session.ErrChatNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return model.Chat{}, usageErrorf("id prefix %q matches %d conversations", ref, len(matches))
	}
}

func (c *CLI) newChatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "chats",
		Aliases: []string{"conversations"},
		Short:   "Manage saved conversations",
	}
	cmd.AddCommand(
		c.newChatsListCmd(),
		c.newChatsShowCmd(),
		c.newChatsRenameCmd(),
		c.newChatsDeleteCmd(),
		c.newChatsExportCmd(),
	)
	return cmd
}

func (c *CLI) newChatsListCmd() *cobra.Command {
	var opts struct {
		project string
		all     bool
	}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations (unscoped ones unless --project or --all)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App()
			if err != nil {
				return err
			}

			var chats []model.Chat
			switch {
			case opts.all:
				chats = app.Sessions.Chats()
			case opts.project != "":
				p, ok := app.Index.ResolveProject(opts.project)
				if !ok {
					return usageErrorf("no project %q", opts.project)
				}
				chats = app.Index.VisibleIn(p.ID)
			default:
				chats = app.Index.VisibleIn("")
			}

			out := cmd.OutOrStdout()
			if c.jsonOut {
				return printJSON(out, chats)
			}
			if len(chats) == 0 {
				fmt.Fprintln(out, DimStyle.Render("No conversations."))
				return nil
			}
			for _, chat := range chats {
				project := ""
				if p, ok := app.Index.Project(chat.ProjectID); ok {
					project = p.Title
				}
				fmt.Fprintf(out, "%s %s %s %s\n",
					DimStyle.Render(shortID(chat.ID)),
					column(chat.Title, 32),
					DimStyle.Render(fmt.Sprintf("%3d msgs", len(chat.Messages))),
					DimStyle.Render(project))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "list a project's conversations")
	cmd.Flags().BoolVar(&opts.all, "all", false, "list every conversation")
	return cmd
}

func (c *CLI) newChatsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App()
			if err != nil {
				return err
			}
			chat, err := resolveChat(app, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if c.jsonOut {
				return printJSON(out, chat)
			}
			fmt.Fprintln(out, TitleStyle.Render(chat.Title))
			fmt.Fprintln(out, RenderSeparator(40))
			for _, m := range chat.Messages {
				printMessage(out, m)
			}
			return nil
		},
	}
}

func (c *CLI) newChatsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title...>",
		Short: "Rename a conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App()
			if err != nil {
				return err
			}
			chat, err := resolveChat(app, args[0])
			if err != nil {
				return err
			}
			title := strings.Join(args[1:], " ")
			if err := app.Index.RenameConversation(chat.ID, title); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", shortID(chat.ID), model.NormalizeTitle(title))
			return nil
		},
	}
}

func (c *CLI) newChatsDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App()
			if err != nil {
				return err
			}
			chat, err := resolveChat(app, args[0])
			if err != nil {
				return err
			}
			ok, err := c.RequireConfirmation(yes, fmt.Sprintf("delete %q", chat.Title))
			if err != nil || !ok {
				return err
			}
			if err := app.Index.DeleteConversation(chat.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", shortID(chat.ID))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func (c *CLI) newChatsExportCmd() *cobra.Command {
	var opts struct {
		format string
		dir    string
		stdout bool
		open   bool
	}
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a conversation to Markdown, JSON or YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App()
			if err != nil {
				return err
			}
			chat, err := resolveChat(app, args[0])
			if err != nil {
				return err
			}

			eopts := export.DefaultOptions()
			eopts.OutputDir = opts.dir
			eopts.OpenAfterExport = opts.open
			exporter, err := export.ForFormat(opts.format, eopts)
			if err != nil {
				return usageErrorf("%v (one of: %s)", err, strings.Join(export.Formats, ", "))
			}

			doc := export.NewDocument(chat)
			doc.Model = app.Sessions.Model()
			if p, ok := app.Index.Project(chat.ProjectID); ok {
				doc.Project = p.Title
			}

			if opts.stdout {
				data, err := exporter.Export(doc)
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), string(data))
				return err
			}
			path, err := export.ExportToFile(doc, exporter, eopts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "markdown", "markdown, json or yaml")
	cmd.Flags().StringVarP(&opts.dir, "output", "o", ".", "output directory")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "write to stdout instead of a file")
	cmd.Flags().BoolVar(&opts.open, "open", false, "open the file after export")
	return cmd
}
