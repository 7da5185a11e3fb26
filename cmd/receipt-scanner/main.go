package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-scanner/internal/learning"
	"github.com/zombor/receipt-scanner/internal/parsing"
	"github.com/zombor/receipt-scanner/internal/scanning"
	"github.com/zombor/receipt-scanner/internal/server"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("receipt-scanner")
	var (
		port            = fs.IntLong("port", 8080, "HTTP server port")
		dataDir         = fs.StringLong("data-dir", ".", "Directory holding learning.db")
		imageDir        = fs.StringLong("image-dir", "", "Directory scan requests may reference images in (empty accepts uploads only)")
		providers       = fs.StringLong("providers", "mindee,vision,gemini", "Ordered recognition providers: mindee, vision, gemini, ollama")
		providerTimeout = fs.DurationLong("provider-timeout", 30*time.Second, "Timeout for each provider call")
		mindeeKey       = fs.StringLong("mindee-key", "", "Mindee API key (or set "+scanning.MindeeKeyEnv+")")
		mindeeURL       = fs.StringLong("mindee-url", scanning.DefaultMindeeURL, "Mindee expense receipt endpoint")
		visionKey       = fs.StringLong("vision-key", "", "Google Cloud Vision API key (or set "+scanning.VisionKeyEnv+")")
		visionURL       = fs.StringLong("vision-url", scanning.DefaultVisionURL, "Google Cloud Vision annotate endpoint")
		geminiKey       = fs.StringLong("gemini-key", "", "Google Gemini API key (or set "+scanning.GeminiKeyEnv+")")
		geminiModel     = fs.StringLong("gemini-model", scanning.DefaultGeminiModel, "Google Gemini model name")
		ollamaURL       = fs.StringLong("ollama-url", scanning.DefaultOllamaURL, "Ollama API base URL")
		ollamaModel     = fs.StringLong("ollama-model", scanning.DefaultOllamaModel, "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		cacheTTL        = fs.DurationLong("cache-ttl", 10*time.Minute, "How long recognition results are cached per image (0 disables)")
		authUser        = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass        = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel        = fs.StringLong("log-level", "info", "Log level: debug, info, warn, error")
		showVersion     = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_SCANNER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	// Correction store; an unusable file degrades to memory so recognition keeps working
	var store learning.Store
	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		logger.Warn("Failed to create data directory", "path", *dataDir, "error", err)
	}
	dbPath := filepath.Join(*dataDir, "learning.db")
	boltStore, err := learning.NewBoltStore(dbPath, logger)
	if err != nil {
		logger.Warn("Learning store unavailable, corrections will not persist", "path", dbPath, "error", err)
		store = learning.NewMemoryStore()
	} else {
		logger.Info("Learning store opened", "path", dbPath)
		store = boltStore
	}
	defer store.Close()
	learner := learning.NewLearner(store, logger)

	parser := parsing.NewParser(logger)
	providerList, err := scanning.NewProviders(strings.Split(*providers, ","), scanning.ProviderConfig{
		MindeeKey:   scanning.EnvCredential(*mindeeKey, scanning.MindeeKeyEnv),
		MindeeURL:   *mindeeURL,
		VisionKey:   scanning.EnvCredential(*visionKey, scanning.VisionKeyEnv),
		VisionURL:   *visionURL,
		GeminiKey:   scanning.EnvCredential(*geminiKey, scanning.GeminiKeyEnv),
		GeminiModel: *geminiModel,
		OllamaURL:   *ollamaURL,
		OllamaModel: *ollamaModel,
	}, parser)
	if err != nil {
		logger.Error("Invalid provider configuration", "error", err)
		os.Exit(1)
	}

	orchestrator := scanning.NewOrchestrator(providerList, learner, scanning.OrchestratorConfig{
		Timeout:  *providerTimeout,
		CacheTTL: *cacheTTL,
	}, logger)
	defer orchestrator.Close()

	names := make([]string, len(providerList))
	for i, p := range providerList {
		names[i] = p.Name()
	}
	logger.Info("Recognition providers configured", "providers", names, "timeout", *providerTimeout)

	basicAuth := server.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	srv := server.NewServer(orchestrator, learner, basicAuth, *imageDir, logger)

	addr := fmt.Sprintf(":%d", *port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		logger.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
