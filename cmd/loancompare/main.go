package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/iwvelando/loan-compare/internal/comparison"
	"github.com/iwvelando/loan-compare/internal/config"
	"github.com/iwvelando/loan-compare/internal/metrics"
	"github.com/iwvelando/loan-compare/internal/model"
	"github.com/iwvelando/loan-compare/internal/ratefeed"
	"github.com/iwvelando/loan-compare/internal/server"
	"github.com/iwvelando/loan-compare/internal/store"
	"github.com/iwvelando/loan-compare/internal/store/memory"
	"github.com/iwvelando/loan-compare/internal/store/postgres"
	"github.com/iwvelando/loan-compare/pkg/constants"
	"github.com/iwvelando/loan-compare/pkg/output"
	"github.com/iwvelando/loan-compare/pkg/validation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const usage = `usage: loancompare [-config path] [-log-level level] <command> [flags]

commands:
  serve         run the HTTP API
  compare       run one comparison from a request file
  migrate       apply (or with -down, roll back) database migrations
  import-rates  update bank base rates from an HTML rate table
`

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var config zap.Config
	switch format {
	case "console":
		config = zap.NewDevelopmentConfig()
	case "json":
		config = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

// openStore returns the PostgreSQL store when a DSN is configured and an
// in-memory store seeded from the dataset file otherwise.
func openStore(ctx context.Context, conf *config.Configuration, logger *zap.Logger) (store.Store, error) {
	if conf.Database.UsesDatabase() {
		st, err := postgres.Open(ctx, postgres.Config{
			DSN:      conf.Database.DSN,
			MaxConns: conf.Database.MaxConns,
			MinConns: conf.Database.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		logger.Info("using postgres store", zap.String("op", "main.openStore"))
		return st, nil
	}

	if conf.Dataset.Path == "" {
		logger.Warn("no database or dataset configured, starting with an empty store",
			zap.String("op", "main.openStore"),
		)
		return memory.New(), nil
	}

	ds, err := memory.LoadDataset(conf.Dataset.Path)
	if err != nil {
		return nil, err
	}
	st, err := memory.NewFromDataset(ds)
	if err != nil {
		return nil, fmt.Errorf("seed memory store from %s: %w", conf.Dataset.Path, err)
	}
	logger.Info("using in-memory store",
		zap.String("op", "main.openStore"),
		zap.String("dataset", conf.Dataset.Path),
		zap.Int("banks", len(ds.Banks)),
		zap.Int("promotions", len(ds.Promotions)),
		zap.Int("rules", len(ds.Rules)),
	)
	return st, nil
}

func newService(conf *config.Configuration, st store.Store, m *metrics.Metrics, logger *zap.Logger) *comparison.Service {
	return comparison.NewService(st, st, comparison.Options{
		Policy:       conf.Policy.EnginePolicy(),
		SessionTTL:   conf.Server.SessionTTL,
		HistoryLimit: conf.Policy.HistoryLimit,
		Logger:       logger,
		Metrics:      m,
	})
}

func runServe(ctx context.Context, conf *config.Configuration, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	address := fs.String("address", "", "listen address override")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *address != "" {
		conf.Server.Address = *address
	}

	st, err := openStore(ctx, conf, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	m := metrics.New()
	handler := server.NewHandler(newService(conf, st, m, logger), st, server.Options{
		Logger:      logger,
		Metrics:     m,
		MaxBodySize: conf.Server.MaxBodySizeBytes(),
		AdminToken:  conf.Server.AdminToken,
		Version:     version,
	})

	srv := &http.Server{
		Addr:              conf.Server.Address,
		Handler:           handler,
		ReadTimeout:       conf.Server.ReadTimeout,
		ReadHeaderTimeout: conf.Server.ReadTimeout,
		WriteTimeout:      conf.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("op", "main.serve"),
			zap.String("address", conf.Server.Address),
			zap.String("version", version),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.String("op", "main.serve"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runCompare(ctx context.Context, conf *config.Configuration, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	requestPath := fs.String("request", "request.yaml", "path to a YAML or JSON comparison request")
	outputFormat := fs.String("output-format", constants.OutputFormatPretty, "type of output: pretty, json")
	save := fs.Bool("save", false, "save the calculation to history")
	session := fs.String("session", "cli", "session identifier used when saving")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validation.ValidateOutputFormat(*outputFormat); err != nil {
		return err
	}

	data, err := os.ReadFile(*requestPath)
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	var req model.Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("parse request %s: %w", *requestPath, err)
	}

	st, err := openStore(ctx, conf, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	outcome, err := newService(conf, st, nil, logger).Compare(ctx, *session, req, *save)
	if err != nil {
		return err
	}
	for _, warning := range outcome.Warnings {
		logger.Warn(warning, zap.String("op", "main.compare"))
	}
	if outcome.SavedID != "" {
		logger.Info("calculation saved",
			zap.String("op", "main.compare"),
			zap.String("id", outcome.SavedID),
		)
	}

	switch *outputFormat {
	case constants.OutputFormatJSON:
		return output.JSONFormat(os.Stdout, outcome)
	default:
		output.PrettyFormat(os.Stdout, outcome.Result)
	}
	return nil
}

func runMigrate(conf *config.Configuration, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	down := fs.Bool("down", false, "roll back every migration")
	dir := fs.String("dir", "", "migrations directory override")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !conf.Database.UsesDatabase() {
		return errors.New("migrate requires database.dsn")
	}
	if *dir != "" {
		conf.Database.MigrationsDir = *dir
	}

	run, direction := postgres.RunMigrations, "up"
	if *down {
		run, direction = postgres.RunMigrationsDown, "down"
	}
	if err := run(conf.Database.DSN, conf.Database.MigrationsDir); err != nil {
		return err
	}
	logger.Info("migrations applied",
		zap.String("op", "main.migrate"),
		zap.String("direction", direction),
		zap.String("dir", conf.Database.MigrationsDir),
	)
	return nil
}

func runImportRates(ctx context.Context, conf *config.Configuration, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("import-rates", flag.ContinueOnError)
	source := fs.String("source", "", "URL or file path of the rate table page")
	column := fs.String("column", ratefeed.DefaultColumn, "rate column header to read")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *source == "" {
		return errors.New("import-rates requires -source")
	}
	if !conf.Database.UsesDatabase() {
		logger.Warn("no database configured, imported rates are not persisted",
			zap.String("op", "main.importRates"),
		)
	}

	st, err := openStore(ctx, conf, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := ratefeed.NewImporter(st, nil, *column, logger).Import(ctx, *source)
	if err != nil {
		return err
	}
	logger.Info("rates imported",
		zap.String("op", "main.importRates"),
		zap.Strings("updated", report.Updated),
		zap.Strings("unknown", report.Unknown),
	)
	return nil
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	for _, warning := range conf.Validate() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, args := flag.Arg(0), flag.Args()[1:]
	switch command {
	case "serve":
		err = runServe(ctx, conf, logger, args)
	case "compare":
		err = runCompare(ctx, conf, logger, args)
	case "migrate":
		err = runMigrate(conf, logger, args)
	case "import-rates":
		err = runImportRates(ctx, conf, logger, args)
	default:
		flag.Usage()
		err = fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		logger.Error("command failed",
			zap.String("op", "main"),
			zap.String("command", command),
			zap.Error(err),
		)
		_ = logger.Sync()
		os.Exit(1)
	}
}
