// Package cmd is the command-line entry point for the invoicing service.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bsm/redislock"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/satheeshds/invoicing/billing"
	"github.com/satheeshds/invoicing/config"
	"github.com/satheeshds/invoicing/db"
	"github.com/satheeshds/invoicing/lock"
	"github.com/satheeshds/invoicing/models"
	"github.com/satheeshds/invoicing/sequence"
	"github.com/satheeshds/invoicing/store"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "invoicing",
	Short: "Invoicing API for small businesses",
	Long: `Invoicing manages clients, invoices and payments over a JSON API.

Running without a subcommand starts the HTTP server. Settings are read from
the environment and from a .env file in the working directory.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		slog.SetDefault(cfg.NewLogger())
		models.PhoneRegion = cfg.PhoneRegion
		return nil
	},
	RunE: runServe,
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the billing service and the connections behind it.
type app struct {
	billing *billing.Service
	pool    *pgxpool.Pool
	rdb     *redis.Client
}

// openApp connects the configured store, sequence and lock backends.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	var (
		repo    store.Repository
		numbers sequence.Sequencer
		locks   lock.Locker
	)

	switch cfg.Store {
	case config.StoreMemory:
		slog.Warn("using in-memory store, data is lost on exit")
		repo = store.NewMemory()
		numbers = sequence.NewMemory()
	default:
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		if err := db.Migrate(pool); err != nil {
			a.Close()
			return nil, err
		}
		repo = store.NewPostgres(pool)
		numbers = sequence.NewPostgres(pool)
	}

	if cfg.RedisAddr != "" {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		slog.Info("redis connected", "addr", cfg.RedisAddr)
		numbers = sequence.NewRedis(a.rdb)
		locks = lock.NewRedis(redislock.New(a.rdb))
	} else {
		locks = lock.NewLocal()
	}

	a.billing = billing.NewService(repo, numbers, locks)
	if err := a.billing.SeedSequence(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("seeding invoice sequence: %w", err)
	}
	return a, nil
}

func (a *app) Close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
