package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/use-agent/tweetscope/config"
	"github.com/use-agent/tweetscope/export"
	"github.com/use-agent/tweetscope/models"
	"github.com/use-agent/tweetscope/workflow"
)

// CLI flags
var (
	token      = flag.String("token", "", "Apify API token (default: $APIFY_TOKEN)")
	targets    = flag.String("targets", "", "Accounts to scrape, comma or newline separated")
	count      = flag.Int("count", models.DefaultDesiredCount, "Posts per account (1-3000)")
	replies    = flag.Bool("replies", true, "Include replies")
	userInfo   = flag.Bool("user-info", true, "Attach author profile data")
	outDir     = flag.String("out", ".", "Directory for export files")
	formats    = flag.String("formats", "csv,json", "Export formats to write: csv, json, raw")
	analyze    = flag.Bool("analyze", false, "Run an LLM analysis over the rows")
	profileID  = flag.String("profile", "", "Analysis profile id (default: sentiment)")
	prompt     = flag.String("prompt", "", "Ad-hoc analysis prompt, overrides -profile")
	llmKey     = flag.String("llm-key", "", "Completion API key (default: $OPENAI_API_KEY)")
	llmModel   = flag.String("llm-model", "", "Completion model (default: $TWEETSCOPE_LLM_MODEL or gpt-4o-mini)")
	llmBaseURL = flag.String("llm-base-url", "", "OpenAI-compatible API base URL")
	verbose    = flag.Bool("v", false, "Verbose logging to stderr")
)

func main() {
	_ = godotenv.Load()
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func run() error {
	req := &models.ScrapeRequest{
		Token:           firstSet(*token, os.Getenv("APIFY_TOKEN")),
		Targets:         models.ParseTargets(*targets),
		DesiredCount:    *count,
		IncludeReplies:  replies,
		IncludeUserInfo: userInfo,
	}
	if len(req.Targets) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: tweetscope-cli -targets <accounts> [-count N] [-out dir] [-analyze]")
		fmt.Fprintln(os.Stderr, "\nExample:")
		fmt.Fprintln(os.Stderr, "  tweetscope-cli -targets @golang,@rob_pike -count 20 -formats csv,raw -analyze")
		return errors.New("no targets given")
	}

	fmts, err := parseFormats(*formats)
	if err != nil {
		return err
	}
	key := firstSet(*llmKey, os.Getenv("OPENAI_API_KEY"))
	if *analyze && key == "" {
		return errors.New("-analyze needs -llm-key or $OPENAI_API_KEY")
	}

	cfg := config.Load()
	orch, err := workflow.Build(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	updates, unsubscribe := orch.Subscribe()
	go printProgress(updates)

	snap, runErr := orch.Run(ctx, req)
	unsubscribe()
	fmt.Println(renderSummary(snap))
	if runErr != nil {
		return runErr
	}

	now := time.Now()
	for _, f := range fmts {
		path, err := writeExport(orch, f, *outDir, now)
		if err != nil {
			return err
		}
		fmt.Println(okStyle.Render("wrote ") + path)
	}

	if *analyze {
		resp, err := orch.Analyze(ctx, &models.AnalyzeRequest{
			LLMAPIKey:  key,
			ProfileID:  *profileID,
			Prompt:     *prompt,
			LLMModel:   *llmModel,
			LLMBaseURL: *llmBaseURL,
		})
		if err != nil {
			return err
		}
		fmt.Println(renderAnalysis(resp))
	}
	return nil
}

// writeExport writes one export file into dir and returns its path.
func writeExport(orch *workflow.Orchestrator, f export.Format, dir string, t time.Time) (string, error) {
	body, err := orch.Export(f)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	name := export.Filename(f, t)
	if f == export.FormatRawCSV {
		name = strings.TrimSuffix(name, ".csv") + "-raw.csv"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// parseFormats parses a comma-separated format list, dropping duplicates.
func parseFormats(s string) ([]export.Format, error) {
	var out []export.Format
	seen := make(map[export.Format]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := export.ParseFormat(part)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

func printProgress(updates <-chan models.RunSnapshot) {
	var last string
	for s := range updates {
		line := string(s.State)
		if s.Phase != "" {
			line += " / " + string(s.Phase)
		}
		if s.JobStatus != "" {
			line += " / " + string(s.JobStatus)
		}
		if line != last {
			fmt.Fprintln(os.Stderr, mutedStyle.Render("… "+line))
			last = line
		}
	}
}

func firstSet(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
