// Package cmd implements the funnel CLI subcommands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/otherjamesbrown/funnel-cli/config"
	"github.com/otherjamesbrown/funnel-cli/pkg/db"
	"github.com/otherjamesbrown/funnel-cli/pkg/identity"
	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
	"github.com/otherjamesbrown/funnel-cli/pkg/observability"
	"github.com/otherjamesbrown/funnel-cli/pkg/review"
	"github.com/otherjamesbrown/funnel-cli/pkg/warehouse"
)

// App bundles the shared dependencies every subcommand needs: loaded
// configuration, a logger, the database pool, and the stores built on it.
type App struct {
	Cfg        *config.CLIConfig
	Logger     logging.Logger
	Pool       *pgxpool.Pool
	Identities *identity.PostgresStore
	Warehouse  *warehouse.Store
	Metrics    *observability.Metrics
}

// NewApp loads configuration, connects to PostgreSQL, and ensures the
// schema exists. Callers must Close the returned App.
func NewApp(ctx context.Context) (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logCfg := logging.DefaultConfig()
	if cfg.Debug {
		logCfg.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logCfg)

	pool, err := db.Connect(ctx, cfg.DatabaseSettings())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.EnsureSchema(ctx, pool); err != nil {
		db.Close(pool)
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	return &App{
		Cfg:        cfg,
		Logger:     logger,
		Pool:       pool,
		Identities: identity.NewPostgresStore(pool),
		Warehouse:  warehouse.NewStore(pool, logger),
		Metrics:    observability.DefaultMetrics(),
	}, nil
}

// Close releases the App's connections.
func (a *App) Close() {
	if a.Pool != nil {
		db.Close(a.Pool)
	}
}

// ReviewQueue builds the Redis-backed review queue from config. The queue
// is optional; commands that use it connect lazily.
func (a *App) ReviewQueue() *review.Queue {
	client := review.ClientFromEnv(a.Cfg.Redis.Addr, a.Cfg.Redis.Password)
	opts := []review.QueueOption{}
	if a.Cfg.Redis.QueueKey != "" {
		opts = append(opts, review.WithQueueKey(a.Cfg.Redis.QueueKey))
	}
	return review.NewQueue(client, a.Logger, opts...)
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// wantJSON reports whether the command should emit JSON, from the --output
// flag falling back to the configured default.
func wantJSON(cfg *config.CLIConfig, flag string) bool {
	if flag != "" {
		return flag == string(config.OutputFormatJSON)
	}
	return cfg.OutputFormat == config.OutputFormatJSON
}

// openInput opens a data file, with "-" meaning stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}
