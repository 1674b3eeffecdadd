package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"starlint/internal/analysis"
	"starlint/internal/config"
	"starlint/internal/history"
	"starlint/internal/observability"
	"starlint/internal/report"
	"starlint/internal/version"
	"starlint/internal/watcher"
	"starlint/internal/workspace"
)

var (
	configPath   = flag.String("config", "./starlint.toml", "Path to config file")
	allChecks    = flag.Bool("all", false, "Run all checks")
	calls        = flag.Bool("calls", false, "Check function calls for compatibility")
	importNaming = flag.Bool("import-naming", false, "Check import_module variable naming")
	visibility   = flag.Bool("function-visibility", false, "Check function visibility and documentation")
	watch        = flag.Bool("watch", false, "Re-run analysis when files change")
	historyPath  = flag.String("history", "", "Record runs to a sqlite history file (overrides config)")
	showHistory  = flag.Bool("show-history", false, "Print recorded runs from the history file and exit")
	sarifPath    = flag.String("sarif", "", "Write a SARIF report to this path (overrides config)")
	verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("starlint v%s\n", version.Version)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = config.Default()
	}
	applyFlags(cfg)

	checks := selectChecks(cfg)

	var store *history.Store
	if cfg.History.Path != "" {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			slog.Error("failed to open history store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	if *showHistory {
		if store == nil {
			slog.Error("show-history requires a history path (-history or [history] in config)")
			os.Exit(1)
		}
		runs, err := store.LoadRuns(time.Time{})
		if err != nil {
			slog.Error("failed to load run history", "error", err)
			os.Exit(1)
		}
		report.NewConsole(os.Stdout).PrintHistory(runs)
		return
	}

	run := func() int {
		files, err := workspace.Scan(cfg.Paths, cfg.Exclude.Dirs, cfg.Exclude.Files)
		if err != nil {
			slog.Error("file scan failed", "error", err)
			return -1
		}

		root := ""
		if len(files) > 0 {
			root = workspace.FindRoot(files[0])
		}
		slog.Debug("analyzing", "files", len(files), "root", root)

		results := analysis.AnalyzeFiles(files, checks, root)

		report.NewConsole(os.Stdout).Print(results, len(files))

		if cfg.Output.SARIF != "" {
			doc, err := report.GenerateSARIF(root, results)
			if err != nil {
				slog.Error("failed to build SARIF report", "error", err)
			} else if err := os.WriteFile(cfg.Output.SARIF, doc, 0o644); err != nil {
				slog.Error("failed to write SARIF report", "path", cfg.Output.SARIF, "error", err)
			}
		}

		if store != nil {
			if runID, err := store.SaveRun(root, len(files), results); err != nil {
				slog.Error("failed to record run", "error", err)
			} else {
				slog.Debug("run recorded", "run_id", runID)
			}
		}

		total := 0
		for _, vs := range results {
			total += len(vs)
		}
		return total
	}

	if !*watch {
		total := run()
		if total != 0 {
			os.Exit(1)
		}
		return
	}

	if cfg.Metrics.Addr != "" {
		srv := observability.NewServer(cfg.Metrics.Addr)
		srv.Start()
		defer srv.Stop(context.Background())
	}

	run()

	// Batches arrive debounced from the watcher; the limiter additionally
	// spaces out full re-analysis runs under sustained churn.
	limiter := rate.NewLimiter(rate.Every(cfg.Watch.MinInterval), 1)
	w, err := watcher.New(cfg.Watch.Debounce, cfg.Exclude.Dirs, cfg.Exclude.Files, func(changed []string) {
		if err := limiter.Wait(context.Background()); err != nil {
			return
		}
		slog.Info("change detected, re-analyzing", "changed", len(changed))
		run()
	})
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}
	defer w.Close()

	if err := w.Watch(cfg.Paths); err != nil {
		slog.Error("failed to watch paths", "error", err)
		os.Exit(1)
	}
	slog.Info("watching for changes", "paths", cfg.Paths)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	slog.Info("shutting down")
}

func applyFlags(cfg *config.Config) {
	if flag.NArg() > 0 {
		cfg.Paths = flag.Args()
	}
	if *historyPath != "" {
		cfg.History.Path = *historyPath
	}
	if *sarifPath != "" {
		cfg.Output.SARIF = *sarifPath
	}
}

// selectChecks combines config and command-line selection. Explicit flags win
// over the config file; when nothing is selected anywhere, everything runs.
func selectChecks(cfg *config.Config) analysis.Checks {
	checks := analysis.Checks{
		ImportNaming: cfg.Checks.ImportNaming,
		Calls:        cfg.Checks.Calls,
		Visibility:   cfg.Checks.Visibility,
		FileExists:   cfg.Checks.FileExists(),
	}

	flagged := *calls || *importNaming || *visibility
	if flagged {
		checks.ImportNaming = *importNaming
		checks.Calls = *calls
		checks.Visibility = *visibility
	}
	if *allChecks || (!flagged && !cfg.Checks.Any()) {
		checks.ImportNaming = true
		checks.Calls = true
		checks.Visibility = true
	}
	return checks
}
