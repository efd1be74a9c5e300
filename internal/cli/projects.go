// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/index"
)

func (c *CLI) newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App()
			if err != nil {
				return err
			}
			projects := app.Index.Projects()
			out := cmd.OutOrStdout()
			if c.jsonOut {
				return printJSON(out, projects)
			}
			if len(projects) == 0 {
				fmt.Fprintln(out, DimStyle.Render("No projects."))
				return nil
			}
			for _, p := range projects {
				fmt.Fprintf(out, "%s %s %s %s\n",
					DimStyle.Render(shortID(p.ID)),
					column(p.Title, 28),
					DimStyle.Render(fmt.Sprintf("%3d chats", len(app.Index.VisibleIn(p.ID)))),
					DimStyle.Render(p.Created().Format("2006-01-02")))
			}
			return nil
		},
	}

	create := &cobra.Command{
		Use:   "create <title...>",
		Short: "Create a project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App()
			if err != nil {
				return err
			}
			p, err := app.Index.CreateProject(strings.Join(args, " "))
			if errors.Is(err, index.ErrEmptyTitle) {
				return usageErrorf("project title must not be blank")
			}
			if err != nil {
				return err
			}
			if c.jsonOut {
				return printJSON(cmd.OutOrStdout(), p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %q (%s)\n", p.Title, shortID(p.ID))
			return nil
		},
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete <id|title>",
		Short: "Delete a project and all of its conversations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App()
			if err != nil {
				return err
			}
			ref := strings.Join(args, " ")
			p, ok := app.Index.ResolveProject(ref)
			if !ok {
				return fmt.Errorf("%w: %s", index.ErrProjectNotFound, ref)
			}
			n := len(app.Index.VisibleIn(p.ID))
			ok, err = c.RequireConfirmation(yes, fmt.Sprintf("delete project %q and its %d conversations", p.Title, n))
			if err != nil || !ok {
				return err
			}
			if err := app.Index.DeleteProject(p.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %q and %d conversations\n", p.Title, n)
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	cmd.AddCommand(list, create, del)
	return cmd
}
