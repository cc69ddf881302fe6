package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-news-sentiment/internal/lexicon"
	"github.com/pribylovaa/go-news-sentiment/internal/sentiment"
)

// scoreCmd не требует БД и полного конфига: только путь к словарю.
var scoreCmd = &cobra.Command{
	Use:   "score [title words...]",
	Short: "Score a title (args or stdin) and an optional summary against the lexicon",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if err := loadDotEnv(); err != nil {
			return err
		}

		// stdout занят результатом.
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		slog.SetDefault(log)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("lexicon")
		if path == "" {
			path = os.Getenv("LEXICON_PATH")
		}
		if path == "" {
			path = "data/lexicon.csv"
		}

		lex, err := lexicon.LoadFile(cmd.Context(), path)
		if err != nil {
			return err
		}

		title := strings.Join(args, " ")
		if title == "" {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			title = string(b)
		}

		summary, _ := cmd.Flags().GetString("summary")

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sentiment.Analyze(title, summary, lex))
	},
}

func init() {
	scoreCmd.Flags().String("lexicon", "", "path to lexicon CSV (default: $LEXICON_PATH or data/lexicon.csv)")
	scoreCmd.Flags().String("summary", "", "summary text to score alongside the title")
}
