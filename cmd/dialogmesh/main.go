package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/xid"
	"github.com/spf13/cobra"

	"github.com/hupe1980/dialogmesh"
	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/loader"
	"github.com/hupe1980/dialogmesh/logging"
	"github.com/hupe1980/dialogmesh/notify"
	"github.com/hupe1980/dialogmesh/store/sqlite"
)

var (
	// Global flags
	verbose    bool
	dialogDir  string
	sqlitePath string

	// chat flags
	conversationKey string
	watch           bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dialogmesh",
	Short: "dialogmesh - declarative turn-based dialog engine",
	Long: `dialogmesh runs declarative, turn-based dialogs defined in YAML files.

A dialog is a begin-step sequence plus event-triggered rules. The engine
maintains a dialog stack per conversation, suspends at input prompts, and
persists all state between turns.`,
}

// chatCmd starts an interactive console session
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the dialogs from the console",
	Long: `Loads the dialog directory and starts a read-eval-print loop on stdin.
Every line is one turn. With --watch, edits to the dialog files are picked
up on the next turn. Type /quit to leave.`,
	RunE: runChat,
}

// validateCmd checks a dialog directory without running anything
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the dialog directory",
	Long: `Parses every dialog file, validates each definition, and cross-checks
beginDialog and replaceDialog targets across the whole set. Exits non-zero
on the first problem found.`,
	RunE: runValidate,
}

// listCmd prints the registered dialogs
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List dialogs in registration order",
	RunE:  runList,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&dialogDir, "dialogs", "d", "./dialogs", "Directory of dialog YAML files")

	chatCmd.Flags().StringVar(&conversationKey, "conversation", "", "Conversation key (default: a fresh id)")
	chatCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "Persist conversations to this SQLite file instead of memory")
	chatCmd.Flags().BoolVar(&watch, "watch", false, "Hot-reload dialog files while chatting")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() logging.Logger {
	if verbose {
		return logging.NewSlogLogger(logging.LogLevelDebug, "text", false)
	}

	return logging.NoOpLogger{}
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()

	var publisher *notify.Publisher
	if verbose {
		publisher = notify.NewPublisher("cli")
	}

	mesh := dialogmesh.New(func(o *dialogmesh.Options) {
		o.Logger = logger

		if publisher != nil {
			o.Notifier = publisher
		}

		if sqlitePath != "" {
			s, err := sqlite.New(sqlitePath)
			if err == nil {
				o.Store = s
			} else {
				logger.Error("SQLite store unavailable, falling back to memory", "error", err)
			}
		}
	})

	if publisher != nil {
		envelopes := publisher.Subscribe("console", 64)
		defer publisher.Unsubscribe("console")

		go func() {
			for env := range envelopes {
				fmt.Fprintf(os.Stderr, "[%s] %s %s\n", env.Type, env.ConversationKey, env.Data)
			}
		}()
	}

	if watch {
		go func() {
			if err := mesh.WatchDialogDir(ctx, dialogDir); err != nil {
				logger.Error("Dialog watcher stopped", "error", err)
			}
		}()
	} else if err := mesh.LoadDialogDir(dialogDir); err != nil {
		return err
	}

	key := conversationKey
	if key == "" {
		key = xid.New().String()
	}

	fmt.Printf("Chatting as conversation %s. Type /quit to leave.\n", key)

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("you> ")

		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if line == "/quit" || line == "/exit" {
			return nil
		}

		result, err := mesh.ProcessText(ctx, key, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "turn failed: %v\n", err)
			continue
		}

		for _, response := range result.Responses {
			switch response.Type {
			case core.ActivityMessage:
				fmt.Printf("bot> %s\n", response.Text)
			case core.ActivityEndOfConversation:
				fmt.Println("(conversation ended; the next message starts over)")
			}
		}
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	registry := core.NewRegistry()
	if err := loader.LoadDirInto(dialogDir, registry); err != nil {
		return err
	}

	ids := registry.IDs()
	fmt.Printf("OK: %d dialogs in %s\n", len(ids), dialogDir)

	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	dialogs, err := loader.LoadDir(dialogDir)
	if err != nil {
		return err
	}

	for i, d := range dialogs {
		marker := " "
		if i == 0 {
			marker = "*" // default root dialog
		}

		fmt.Printf("%s %-24s steps=%-3d rules=%d\n", marker, d.ID, len(d.Steps), len(d.Rules))
	}

	return nil
}
