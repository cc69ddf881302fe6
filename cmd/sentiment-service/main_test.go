package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-news-sentiment/internal/config"
	"github.com/pribylovaa/go-news-sentiment/internal/models"
)

func writeLexicon(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "lexicon.csv")
	const csv = "word,sentiment\nstrong,positive\ngrowth,positive\ndecline,negative\nloss,negative\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))
	return path
}

func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestScoreCmd_Args(t *testing.T) {
	path := writeLexicon(t)
	t.Cleanup(func() { _ = scoreCmd.Flags().Set("summary", "") })

	out, err := runRoot(t, "", "score", "--lexicon", path, "--summary", "loss", "Strong", "Growth", "Amid", "Market", "Decline")
	require.NoError(t, err)

	var got models.ArticleSentiment
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, 2, got.TitlePositive)
	require.Equal(t, 1, got.TitleNegative)
	require.InDelta(t, 0.2, got.TitleScore, 1e-9)
	require.Equal(t, 1, got.SummaryNegative)
	require.InDelta(t, -1.0, got.SummaryScore, 1e-9)
}

func TestScoreCmd_Stdin(t *testing.T) {
	path := writeLexicon(t)

	out, err := runRoot(t, "strong growth\n", "score", "--lexicon", path)
	require.NoError(t, err)

	var got models.ArticleSentiment
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.InDelta(t, 1.0, got.TitleScore, 1e-9)
	require.Zero(t, got.SummaryScore)
}

func TestScoreCmd_MissingLexicon(t *testing.T) {
	_, err := runRoot(t, "", "score", "--lexicon", filepath.Join(t.TempDir(), "nope.csv"), "x")
	require.Error(t, err)
}

func TestBuildSources(t *testing.T) {
	require.Empty(t, buildSources(config.FetcherConfig{}, time.Second))

	sources := buildSources(config.FetcherConfig{
		NewsAPI: config.NewsAPIConfig{APIKey: "k", BaseURL: "https://newsapi.org", PageSize: 10},
		RSS:     config.RSSConfig{Feeds: []string{"https://example.com/feed"}, Concurrency: 2},
	}, time.Second)

	require.Len(t, sources, 2)
	require.Equal(t, "newsapi", sources[0].Name())
	require.Equal(t, "rss", sources[1].Name())
}

func TestSetupLogger_Envs(t *testing.T) {
	for _, env := range []string{envLocal, envDev, envProd, "unknown"} {
		require.NotNil(t, setupLogger(env), env)
	}
}
