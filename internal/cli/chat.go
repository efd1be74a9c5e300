// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/catalog"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/session"
)

// =============================================================================
// CHAT COMMAND
// =============================================================================

func (c *CLI) newChatCmd() *cobra.Command {
	var opts struct {
		plain   bool
		model   string
		project string
		chatID  string
	}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		Long: `Start an interactive chat.

Opens the full-screen interface when stdin is a terminal, otherwise (or
with --plain) a line-based REPL that also reads piped input.`,
		Example: `  rigchat chat
  rigchat chat --plain -m llama3.2
  echo "Summarize this email" | rigchat chat --plain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.App()
			if err != nil {
				return err
			}
			if opts.project != "" {
				p, ok := app.Index.ResolveProject(opts.project)
				if !ok {
					return usageErrorf("no project %q", opts.project)
				}
				if err := app.Index.SelectProject(p.ID); err != nil {
					return err
				}
			}
			if opts.chatID != "" {
				chat, err := resolveChat(app, opts.chatID)
				if err != nil {
					return err
				}
				if err := app.Index.SelectConversation(chat.ID); err != nil {
					return err
				}
			}
			if err := ensureModel(cmd.Context(), app, opts.model); err != nil {
				return err
			}

			if !opts.plain && IsTTY() && IsStdoutTTY() && c.runTUI != nil {
				return c.runTUI(cmd.Context(), app)
			}
			return runREPL(cmd.Context(), app, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.plain, "plain", false, "use the line-based REPL")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "model for this session (not saved)")
	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "project id or title to chat in")
	cmd.Flags().StringVar(&opts.chatID, "chat", "", "continue an existing conversation")
	return cmd
}

// ensureModel picks the session model: the flag, else the saved preference
// when installed, else the first installed model.
func ensureModel(ctx context.Context, app *App, flag string) error {
	if flag != "" {
		app.Sessions.UseModel(flag)
		return nil
	}
	res := app.Catalog.Models(ctx)
	if !res.OK() {
		if app.Sessions.Model() != "" {
			return nil
		}
		return &CommandError{Command: "chat", Action: "list models", Reason: "ollama unreachable at " + app.Catalog.Host(), Err: errors.New(res.Error)}
	}
	name := app.Catalog.SelectModel(res.Models)
	if name == "" {
		return &CommandError{Command: "chat", Action: "select model", Reason: "no models installed; run `ollama pull <model>`"}
	}
	app.Sessions.UseModel(name)
	return nil
}

// =============================================================================
// LINE INPUT
// =============================================================================

type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close()
}

// ChatCLI provides input history and line editing for the REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor with history loaded from the config dir.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	c := &ChatCLI{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// ReadLine reads one line, adding non-empty input to history.
func (c *ChatCLI) ReadLine(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the
// terminal.
func (c *ChatCLI) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// scanReader reads piped input.
type scanReader struct {
	sc *bufio.Scanner
}

func (r *scanReader) ReadLine(string) (string, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.sc.Text(), nil
}

func (r *scanReader) Close() {}

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	app  *App
	out  io.Writer
	in   lineReader
	tty  bool
	done bool
}

func runREPL(ctx context.Context, app *App, in io.Reader, out io.Writer) error {
	r := &repl{app: app, out: out}
	if f, ok := in.(*os.File); ok && f == os.Stdin && IsTTY() {
		r.in = NewChatCLI()
		r.tty = true
	} else {
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		r.in = &scanReader{sc: sc}
	}
	defer r.in.Close()

	if r.tty {
		fmt.Fprintln(out, TitleStyle.Render("rigchat")+" "+DimStyle.Render("model "+app.Sessions.Model()+" · /help for commands"))
	}

	for !r.done {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := r.in.ReadLine(userColor.Sprint("> "))
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			break
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if err := r.command(ctx, line); err != nil {
				errorColor.Fprintln(out, err)
			}
			continue
		}
		if err := r.send(ctx, line); err != nil {
			errorColor.Fprintln(out, err)
		}
	}
	return nil
}

// send streams one reply, printing each new fragment as it arrives.
// Ctrl+C stops the reply without leaving the REPL.
func (r *repl) send(ctx context.Context, text string) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var (
		mu      sync.Mutex
		printed int
	)
	// Title updates render from their own goroutine.
	r.app.Sessions.SetRenderCallback(func(v session.View) {
		mu.Lock()
		defer mu.Unlock()
		if len(v.Messages) == 0 {
			return
		}
		last := v.Messages[len(v.Messages)-1]
		if last.Role != model.RoleAssistant || len(last.Content) <= printed {
			return
		}
		delta := last.Content[printed:]
		printed = len(last.Content)
		if v.Final && strings.HasSuffix(delta, session.ErrorMarker) {
			assistantColor.Fprint(r.out, strings.TrimSuffix(delta, session.ErrorMarker))
			errorColor.Fprint(r.out, session.ErrorMarker)
			return
		}
		assistantColor.Fprint(r.out, delta)
	})
	defer r.app.Sessions.SetRenderCallback(nil)

	err := r.app.Sessions.Send(sigCtx, text)
	if err == nil {
		fmt.Fprintln(r.out)
	}
	return err
}

const replHelp = `Commands:
  /new             start a new conversation
  /chats           list conversations in this scope
  /open <id>       switch to a conversation
  /model [name]    show or switch the session model
  /system [text]   show or save the system prompt
  /quit            leave (Ctrl+D also works)`

func (r *repl) command(ctx context.Context, line string) error {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/help", "/h":
		hintColor.Fprintln(r.out, replHelp)
	case "/quit", "/q", "/exit":
		r.done = true
	case "/new":
		if _, err := r.app.Index.CreateConversation(); err != nil {
			return err
		}
		hintColor.Fprintln(r.out, "New conversation.")
	case "/chats":
		for _, chat := range r.app.Index.Visible() {
			marker := "  "
			if chat.ID == r.app.Sessions.CurrentID() {
				marker = "* "
			}
			fmt.Fprintf(r.out, "%s%s %s\n", marker, DimStyle.Render(shortID(chat.ID)), chat.Title)
		}
	case "/open":
		chat, err := resolveChat(r.app, arg)
		if err != nil {
			return err
		}
		if err := r.app.Index.SelectConversation(chat.ID); err != nil {
			return err
		}
		for _, m := range chat.Messages {
			printMessage(r.out, m)
		}
	case "/model":
		if arg == "" {
			fmt.Fprintln(r.out, r.app.Sessions.Model())
			return nil
		}
		res := r.app.Catalog.Models(ctx)
		if res.OK() && catalog.SelectModel(arg, res.Models) != arg {
			return fmt.Errorf("model %q is not installed", arg)
		}
		r.app.Sessions.UseModel(arg)
		hintColor.Fprintf(r.out, "Using %s.\n", arg)
	case "/system":
		if arg == "" {
			fmt.Fprintln(r.out, r.app.Sessions.SystemPrompt())
			return nil
		}
		return r.app.Sessions.SetSystemPrompt(arg)
	default:
		return fmt.Errorf("unknown command %s (try /help)", name)
	}
	return nil
}

func printMessage(w io.Writer, m model.Message) {
	switch m.Role {
	case model.RoleUser:
		userColor.Fprintf(w, "> %s\n", m.Content)
	case model.RoleAssistant:
		assistantColor.Fprintln(w, m.Content)
	default:
		hintColor.Fprintln(w, m.Content)
	}
}
