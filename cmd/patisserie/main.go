// Command patisserie serves The Patisserie Lane storefront and its
// Strategy console from a single binary backed by a local data directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/thepatisserielane/studio/internal/history"
	"github.com/thepatisserielane/studio/internal/localstore"
	"github.com/thepatisserielane/studio/internal/media"
	"github.com/thepatisserielane/studio/internal/mediastore"
	"github.com/thepatisserielane/studio/internal/server"
	"github.com/thepatisserielane/studio/internal/server/handlers"
	"github.com/thepatisserielane/studio/internal/sitecfg"
	"github.com/thepatisserielane/studio/internal/suggest"
	"github.com/thepatisserielane/studio/web"
)

var version = "dev"

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "patisserie: %v\n", err)
		os.Exit(1)
	}
}

// fileConfig is the optional studio.yaml in the data directory. Flags
// given on the command line win over it.
type fileConfig struct {
	HTTP         string `yaml:"http"`
	LogLevel     string `yaml:"log_level"`
	QuotaMB      int    `yaml:"quota_mb"`
	History      *bool  `yaml:"history"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`
}

func loadFileConfig(dataDir string) (fileConfig, error) {
	var cfg fileConfig
	raw, err := os.ReadFile(filepath.Join(dataDir, "studio.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read studio.yaml: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse studio.yaml: %w", err)
	}
	return cfg, nil
}

func mainImpl() error {
	printVersion := flag.Bool("version", false, "Print version and exit")
	httpAddr := flag.String("http", "localhost:8080", "Address to listen on")
	dataDir := flag.String("data-dir", "./data", "Data directory")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	quotaMB := flag.Int("quota-mb", 500, "Storage quota in MB used for usage estimates")
	noHistory := flag.Bool("no-history", false, "Disable the git audit trail for configuration edits")
	openAIKey := flag.String("openai-api-key", "", "API key for the pastry consultant (empty disables it)")
	openAIModel := flag.String("openai-model", "", "Chat model for the pastry consultant")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}
	if *printVersion {
		fmt.Println(version)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	cfg, err := loadFileConfig(*dataDir)
	if err != nil {
		return err
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["http"] && cfg.HTTP != "" {
		*httpAddr = cfg.HTTP
	}
	if !set["log-level"] && cfg.LogLevel != "" {
		*logLevel = cfg.LogLevel
	}
	if !set["quota-mb"] && cfg.QuotaMB > 0 {
		*quotaMB = cfg.QuotaMB
	}
	if !set["no-history"] && cfg.History != nil {
		*noHistory = !*cfg.History
	}
	if !set["openai-api-key"] && cfg.OpenAIAPIKey != "" {
		*openAIKey = cfg.OpenAIAPIKey
	}
	if !set["openai-model"] && cfg.OpenAIModel != "" {
		*openAIModel = cfg.OpenAIModel
	}
	if *openAIKey == "" {
		*openAIKey = os.Getenv("OPENAI_API_KEY")
	}

	initLogger(*logLevel)

	store := mediastore.New(*dataDir, *quotaMB)
	local := localstore.Open(filepath.Join(*dataDir, "local.json"))
	site := sitecfg.New(local)
	resolver := media.NewResolver(store, local)

	var auditLog *history.Log
	if !*noHistory {
		auditLog, err = history.Open(*dataDir)
		if err != nil {
			return fmt.Errorf("failed to open audit trail: %w", err)
		}
	}
	consultant := suggest.New(*openAIKey, *openAIModel)
	if consultant.Enabled() {
		slog.Info("Pastry consultant enabled")
	}

	pages, err := web.New(site, resolver, store)
	if err != nil {
		return err
	}
	svc := &handlers.Services{
		Store:    store,
		Local:    local,
		Site:     site,
		Resolver: resolver,
		Suggest:  consultant,
		History:  auditLog,
	}

	if err := watchLocalStore(ctx, filepath.Join(*dataDir, "local.json"), local); err != nil {
		slog.Warn("Not watching local.json for external edits", "err", err)
	}

	httpServer := &http.Server{
		Addr:        *httpAddr,
		Handler:     server.NewRouter(svc, pages, version),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", *httpAddr, "dataDir", *dataDir)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.Info("Server stopped")
	}
	return nil
}

// initLogger installs a tinted slog handler on stderr.
func initLogger(level string) {
	ll := &slog.LevelVar{}
	switch level {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		ll.Set(slog.LevelInfo)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)
}

// watchLocalStore reloads the flat store when local.json is edited
// outside the process, so a hand edit shows up without a restart.
func watchLocalStore(ctx context.Context, path string, local *localstore.Store) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: the store replaces the file on every write, and
	// a watch on the old inode would go stale.
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					if err := local.Reload(); err != nil {
						slog.WarnContext(ctx, "Failed to reload local store", "err", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching local store", "err", err)
			}
		}
	}()
	return nil
}
