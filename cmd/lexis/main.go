package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lexis/internal/app"
	"github.com/ternarybob/lexis/internal/common"
	"github.com/ternarybob/lexis/internal/models"
)

var (
	// Command-line flags
	configPath   = flag.String("config", "", "Configuration file path")
	configPathC  = flag.String("c", "", "Configuration file path (shorthand)")
	knowledgeDir = flag.String("dir", "", "Knowledge directory (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

const usageText = `Usage: lexis [flags] <command>

Commands:
  index            Index the knowledge directory (PDFs -> chunks -> vector store)
  ask <question>   Answer a question from the indexed corpus, with citations
  serve            Run the scheduled indexer until interrupted
  version          Print full version information

Flags:
  -config, -c      Configuration file path (default: ./lexis.toml if present)
  -dir             Knowledge directory (overrides config)
  -version, -v     Print version information
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	flag.Parse()

	// Handle version flag
	if *showVersion || *showVersionV {
		fmt.Printf("Lexis version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Merge config flags (shorthand takes precedence)
	finalConfig := *configPath
	if *configPathC != "" {
		finalConfig = *configPathC
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command := args[0]

	if command == "version" {
		fmt.Printf("Lexis %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file -> env)
	// 2. Apply CLI overrides
	// 3. Initialize logger
	// 4. Print banner
	var err error

	// Auto-discover config file if not specified
	if finalConfig == "" {
		if _, err := os.Stat("lexis.toml"); err == nil {
			finalConfig = "lexis.toml"
		}
	}

	// 1. Load configuration
	config, err = common.LoadFromFile(finalConfig)
	if err != nil {
		// Use temporary logger for startup errors
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Str("path", finalConfig).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	// 2. Apply command-line flag overrides (highest priority)
	if *knowledgeDir != "" {
		config.Knowledge.Dir = *knowledgeDir
	}

	// 3. Initialize logger with final configuration
	logger = common.InitLogger(config)

	// 4. Print banner
	common.PrintBanner(common.GetVersion())

	logger.Debug().
		Str("knowledge_dir", config.Knowledge.Dir).
		Str("badger_path", config.Storage.Badger.Path).
		Str("llm_provider", config.LLM.DefaultProvider).
		Str("log_level", config.Logging.Level).
		Msg("Resolved configuration")

	switch command {
	case "index":
		runIndex()
	case "ask":
		question := strings.TrimSpace(strings.Join(args[1:], " "))
		runAsk(question)
	case "serve":
		runServe()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", command)
		flag.Usage()
		os.Exit(2)
	}
}

// runIndex runs one full pass over the knowledge directory and prints a
// per-document report.
func runIndex() {
	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	report, err := application.IndexerService.IndexAll(application.Context())
	if err != nil {
		logger.Fatal().Err(err).Msg("Indexing run failed")
	}

	fmt.Println()
	for _, doc := range report.Documents {
		switch doc.Status {
		case models.DocumentIndexed:
			fmt.Printf("  ✓ %-40s %d chunks\n", doc.FileName, doc.ChunkCount)
		case models.DocumentSkipped:
			fmt.Printf("  = %-40s unchanged (%d chunks)\n", doc.FileName, doc.ChunkCount)
		case models.DocumentEmpty:
			fmt.Printf("  ! %-40s %s\n", doc.FileName, doc.Warning)
		case models.DocumentFailed:
			fmt.Printf("  ✗ %-40s %v\n", doc.FileName, doc.Err)
		}
	}
	fmt.Printf("\n%d documents in %s\n", len(report.Documents), report.Duration.Round(time.Millisecond))

	if failed := report.Failed(); len(failed) > 0 {
		logger.Error().Int("failed", len(failed)).Msg("Some documents could not be indexed")
		os.Exit(1)
	}
}

// runAsk streams one answer to stdout and prints the citation summary.
func runAsk(question string) {
	if question == "" {
		fmt.Fprintln(os.Stderr, "usage: lexis ask <question>")
		os.Exit(2)
	}

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	answer, err := application.AskService.Ask(application.Context(), question, func(token string) error {
		fmt.Print(token)
		return nil
	})
	if err != nil {
		fmt.Println()
		logger.Fatal().Err(err).Msg("Question could not be answered")
	}

	fmt.Printf("\n\n%s\n", answer.Summary())
	for _, n := range answer.Reconciliation.Cited {
		chunk := answer.Context.Chunk(n)
		if chunk == nil {
			continue
		}
		label := chunk.Location.Label
		if label == "" {
			label = string(chunk.Location.Kind)
		}
		fmt.Printf("  [Source %d] %s, pages %d-%d (score %.2f)\n",
			n, label, chunk.PageRange.Start, chunk.PageRange.End, chunk.QualityScore)
	}
}

// runServe starts the cron-scheduled indexer and blocks until interrupted.
func runServe() {
	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	if err := application.StartSchedule(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start indexing schedule")
	}

	// Run an initial pass so a fresh store is usable immediately
	go func() {
		if _, err := application.IndexerService.IndexAll(application.Context()); err != nil &&
			!isContextCanceled(err) {
			logger.Error().Err(err).Msg("Initial indexing run failed")
		}
	}()

	logger.Info().
		Str("schedule", config.Indexing.Schedule).
		Msg("Lexis running - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received, shutting down")
}

func isContextCanceled(err error) bool {
	return err != nil && (err == context.Canceled ||
		strings.Contains(err.Error(), context.Canceled.Error()))
}
