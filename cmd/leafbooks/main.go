// Command leafbooks runs the manuscript structuring pipeline.
//
// Usage:
//
//	leafbooks -mcp                                   # serve MCP tools on stdio
//	leafbooks -book b1 -url https://.../book.pdf     # one-shot processing
//
// Environment:
//
//	SECTIONS_DB     path to the section database (default: db/sections.db)
//	GEMINI_API_KEY  enables the Gemini reformatting service
//	GEMINI_MODEL    overrides the default Gemini model
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bputano/leafbooks/contentpipe"
	"github.com/bputano/leafbooks/reformat"
	"github.com/bputano/leafbooks/sectionstore"
)

func main() {
	configPath := flag.String("config", "", "path to pipeline YAML config file")
	mcpMode := flag.Bool("mcp", false, "serve MCP tools on stdio")
	bookID := flag.String("book", "", "book ID for one-shot processing")
	manuscriptURL := flag.String("url", "", "manuscript URL for one-shot processing")
	fileType := flag.String("format", "", "manuscript format: pdf, epub, docx (default: from URL)")
	samplePercent := flag.Int("sample", 10, "free sample size as percent of total words")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *mcpMode, *bookID, *manuscriptURL, *fileType, *samplePercent); err != nil {
		logger.Error("leafbooks: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath string, mcpMode bool, bookID, manuscriptURL, fileType string, samplePercent int) error {
	var cfg contentpipe.Config
	if configPath != "" {
		loaded, err := contentpipe.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = *loaded
	}
	cfg.Logger = logger

	dbPath := env("SECTIONS_DB", "db/sections.db")
	db, err := sectionstore.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open section db: %w", err)
	}
	defer db.Close()
	cfg.Sink = sectionstore.New(db)

	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		svc, err := reformat.NewGeminiService(ctx, apiKey, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			return fmt.Errorf("gemini service: %w", err)
		}
		cfg.Reformatter = reformat.New(reformat.Config{Service: svc, Logger: logger})
	} else {
		logger.Warn("GEMINI_API_KEY not set, using local fallback formatter")
	}

	pipe := contentpipe.New(cfg)

	if mcpMode {
		return runMCP(ctx, logger, pipe)
	}

	if bookID == "" || manuscriptURL == "" {
		fmt.Fprintln(os.Stderr, "usage: leafbooks -mcp | -book <id> -url <url> [-format pdf|epub|docx] [-sample N]")
		os.Exit(1)
	}

	format := contentpipe.Format(fileType)
	if fileType == "" {
		format, err = pipe.Detect(manuscriptURL)
		if err != nil {
			return err
		}
	}

	if err := pipe.Process(ctx, bookID, manuscriptURL, format, samplePercent); err != nil {
		return fmt.Errorf("process %s: %w", bookID, err)
	}
	logger.Info("book processed", "book_id", bookID, "format", format)
	return nil
}

func runMCP(ctx context.Context, logger *slog.Logger, pipe *contentpipe.Pipeline) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "leafbooks",
		Version: "1.0.0",
	}, nil)
	pipe.RegisterMCP(srv)

	logger.Info("MCP stdio server starting")
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
