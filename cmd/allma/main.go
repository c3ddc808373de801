// allma - terminal chat client for a local Allma RAG backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/phuslu/log"

	"github.com/allma-studio/allma-go/internal/api"
	"github.com/allma-studio/allma-go/internal/client"
	"github.com/allma-studio/allma-go/internal/config"
	"github.com/allma-studio/allma-go/internal/health"
	"github.com/allma-studio/allma-go/internal/model"
	"github.com/allma-studio/allma-go/internal/state"
	"github.com/allma-studio/allma-go/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

func main() {
	baseURL := flag.String("url", "", "backend base URL (overrides config)")
	modelName := flag.String("model", "", "model to chat with (overrides config)")
	noRAG := flag.Bool("no-rag", false, "disable document retrieval")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("allma %s (%s)\n", Version, GitCommit)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.Backend.BaseURL = *baseURL
	}
	if *modelName != "" {
		cfg.Chat.Model = *modelName
	}
	if *noRAG {
		cfg.Chat.UseRAG = false
	}

	setupLogger(cfg.Log.Level)

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(level string) {
	log.DefaultLogger = log.Logger{
		Level:  log.ParseLevel(level),
		Writer: &log.ConsoleWriter{Writer: os.Stderr, ColorOutput: false},
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tcfg := api.DefaultConfig()
	tcfg.BaseURL = cfg.Backend.BaseURL
	tcfg.Timeout = cfg.Timeout()
	tcfg.ProbeTimeout = cfg.ProbeTimeout()

	c := client.New(client.Config{Transport: tcfg})

	var hist *storage.History
	if cfg.History.Enabled {
		path, err := cfg.HistoryPath()
		if err == nil {
			hist, err = storage.Open(path, storage.Options{MaxConversations: cfg.History.MaxConversations})
		}
		if err != nil {
			log.Warn().Err(err).Msg("history disabled")
			hist = nil
		} else {
			defer hist.Close()
		}
	}

	chat := state.NewChatController(c, historian(hist))
	docs := state.NewDocumentController(c)
	search := state.NewSearchController(c)
	models := state.NewModelController(c)

	monitor := health.NewMonitor(c.Transport(), health.MonitorConfig{
		Interval: cfg.HealthInterval(),
		Timeout:  cfg.ProbeTimeout(),
		OnChange: func(s model.HealthStatus) {
			log.Info().Str("state", s.State.String()).Msg("backend availability changed")
		},
	})
	monitor.Start(ctx)
	defer monitor.Stop()

	fmt.Printf("allma %s - connected to %s\n", Version, cfg.Backend.BaseURL)
	fmt.Println("Type a message, or /help for commands.")

	r := &repl{
		cfg:     cfg,
		client:  c,
		chat:    chat,
		docs:    docs,
		search:  search,
		models:  models,
		monitor: monitor,
		out:     os.Stdout,
	}

	// Hot-reload chat preferences and log level on config file edits.
	// Backend URL changes still require a restart.
	if path, err := config.Path(); err == nil {
		if w, werr := config.NewWatcher(path, func(next *config.Config) {
			setupLogger(next.Log.Level)
			r.applyConfig(next)
		}); werr == nil {
			if werr = w.Watch(); werr != nil {
				w.Close()
			} else {
				defer w.Close()
			}
		}
	}

	return r.loop(ctx, bufio.NewScanner(os.Stdin))
}

// historian adapts a possibly-nil *storage.History to the controller
// interface without storing a typed nil.
func historian(h *storage.History) state.Historian {
	if h == nil {
		return nil
	}
	return h
}

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	client  *client.Client
	chat    *state.ChatController
	docs    *state.DocumentController
	search  *state.SearchController
	models  *state.ModelController
	monitor *health.Monitor
	out     *os.File

	mu  sync.Mutex // guards cfg against watcher reloads
	cfg *config.Config
}

// applyConfig swaps in chat preferences from a reloaded config. Command-line
// overrides are not reapplied; the file wins after an edit.
func (r *repl) applyConfig(next *config.Config) {
	r.mu.Lock()
	r.cfg.Chat = next.Chat
	r.mu.Unlock()
}

func (r *repl) chatPrefs() config.Chat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.Chat
}

func (r *repl) loop(ctx context.Context, in *bufio.Scanner) error {
	for {
		fmt.Fprint(r.out, "> ")
		if !in.Scan() {
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if strings.HasPrefix(line, "/") {
			r.command(ctx, line)
			continue
		}
		r.send(ctx, line)

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (r *repl) send(ctx context.Context, text string) {
	prefs := r.chatPrefs()
	opts := client.ChatOptions{
		UseRAG: prefs.UseRAG,
		Model:  prefs.Model,
	}

	// Streaming against the live backend; plain request once latched.
	if r.client.UsingSimulatedBackend() {
		reply := r.chat.SendMessage(ctx, text, opts)
		r.printMessage(reply)
		return
	}

	fmt.Fprintf(r.out, "\n[%s] ", model.RoleAssistant.DisplayName())
	var printed int
	reply := r.chat.SendStreamingMessage(ctx, text, opts, func(partial string) {
		fmt.Fprint(r.out, partial[printed:])
		printed = len(partial)
	})
	fmt.Fprintln(r.out)
	if reply == nil {
		fmt.Fprintln(r.out, "(cancelled)")
		return
	}
	if reply.IsError {
		// Stream failed; the latch has tripped, retry resolves in demo mode
		// without re-appending the user turn.
		r.printMessage(r.chat.RetryLast(ctx, opts))
	}
}

func (r *repl) printMessage(msg *model.Message) {
	if msg == nil {
		return
	}
	prefix := msg.Role.DisplayName()
	if msg.IsError {
		prefix = "error"
	}
	fmt.Fprintf(r.out, "\n[%s] %s\n", prefix, msg.Content)
	for _, src := range msg.Sources {
		fmt.Fprintf(r.out, "  source: %s (%.2f)\n", src.Document, src.Relevance)
	}
	if r.client.UsingSimulatedBackend() {
		fmt.Fprintln(r.out, "  (demo mode - backend unreachable, /reset to retry live)")
	}
}

func (r *repl) command(ctx context.Context, line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		fmt.Fprintln(r.out, `commands:
  /models              list available models
  /switch <name>       switch the active model
  /pull <name>         download a model on the backend
  /docs                list indexed documents
  /upload <paths...>   upload documents
  /ingest <name> <text>  ingest raw text as a document
  /search <query>      search the document index
  /conversations [rm <id>]  list or delete stored conversations
  /health              check backend health
  /reset               leave demo mode, retry the live backend
  /clear               start a new conversation
  /quit                exit`)

	case "/models":
		if err := r.models.Refresh(ctx); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			return
		}
		current := r.models.Current()
		for _, m := range r.models.Models() {
			marker := " "
			if m.Name == current {
				marker = "*"
			}
			fmt.Fprintf(r.out, "%s %s (%s)\n", marker, m.Name, m.FormatSize())
		}

	case "/switch":
		if len(args) != 1 {
			fmt.Fprintln(r.out, "usage: /switch <name>")
			return
		}
		if err := r.models.SwitchModel(ctx, args[0]); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			return
		}
		fmt.Fprintf(r.out, "switched to %s\n", r.models.Current())

	case "/pull":
		if len(args) != 1 {
			fmt.Fprintln(r.out, "usage: /pull <name>")
			return
		}
		fmt.Fprintf(r.out, "pulling %s...\n", args[0])
		if err := r.client.PullModel(ctx, args[0]); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			return
		}
		fmt.Fprintf(r.out, "pulled %s\n", args[0])

	case "/docs":
		records, err := r.docs.List(ctx)
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			return
		}
		if len(records) == 0 {
			fmt.Fprintln(r.out, "no documents indexed")
			return
		}
		for _, rec := range records {
			fmt.Fprintf(r.out, "%s  %s (%d chunks)\n", rec.ID, rec.Name, rec.ChunksCreated)
		}

	case "/upload":
		if len(args) == 0 {
			fmt.Fprintln(r.out, "usage: /upload <paths...>")
			return
		}
		for _, res := range r.docs.UploadFiles(ctx, args) {
			if res.Err != nil {
				fmt.Fprintf(r.out, "%s: failed: %v\n", res.Filename, res.Err)
			} else {
				fmt.Fprintf(r.out, "%s: indexed (%d chunks)\n", res.Filename, res.Record.ChunksCreated)
			}
		}

	case "/ingest":
		if len(args) < 2 {
			fmt.Fprintln(r.out, "usage: /ingest <name> <text>")
			return
		}
		resp, err := r.client.IngestText(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			return
		}
		fmt.Fprintf(r.out, "%s: indexed (%d chunks)\n", resp.Name, resp.ChunksCreated)

	case "/conversations":
		if len(args) == 2 && args[0] == "rm" {
			if err := r.client.DeleteConversation(ctx, args[1]); err != nil {
				fmt.Fprintf(r.out, "error: %v\n", err)
				return
			}
			fmt.Fprintf(r.out, "deleted %s\n", args[1])
			return
		}
		convs, err := r.client.ListConversations(ctx)
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			return
		}
		if len(convs) == 0 {
			fmt.Fprintln(r.out, "no stored conversations")
			return
		}
		for _, conv := range convs {
			fmt.Fprintf(r.out, "%s  %s (%d messages)\n", conv.ID, conv.Title, conv.MessageCount)
		}

	case "/search":
		query := strings.Join(args, " ")
		if err := r.search.Search(ctx, query, r.chatPrefs().TopK); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			return
		}
		_, hits := r.search.Results()
		if len(hits) == 0 {
			fmt.Fprintln(r.out, "no results")
			return
		}
		for _, hit := range hits {
			fmt.Fprintf(r.out, "%.2f  %s: %s\n", hit.Relevance, hit.Document, hit.Snippet)
		}

	case "/health":
		status := r.monitor.Refresh(ctx)
		fmt.Fprintf(r.out, "backend: %s", status.State)
		if status.LastError != "" {
			fmt.Fprintf(r.out, " (%s)", status.LastError)
		}
		fmt.Fprintln(r.out)
		if r.client.UsingSimulatedBackend() {
			fmt.Fprintln(r.out, "client: demo mode (use /reset to go live)")
		}

	case "/reset":
		r.client.ResetToLive()
		fmt.Fprintln(r.out, "demo mode cleared; next message tries the live backend")

	case "/clear":
		r.chat.ClearMessages()
		fmt.Fprintln(r.out, "conversation cleared")

	default:
		fmt.Fprintf(r.out, "unknown command %s, try /help\n", cmd)
	}
}
