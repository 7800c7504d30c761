package cmd

import (
	"context"
	"fmt"
	"os"

	"vape-market-backend/internal/config"
	"vape-market-backend/internal/repository"
	"vape-market-backend/internal/repository/memory"
	"vape-market-backend/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "vape-market",
	Short: "Backend of the vape classifieds Telegram Mini App",
	Long: `vape-market serves the Mini App API, runs the launch bot and
manages the PostgreSQL schema.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, botCmd, migrateCmd)
}

// Run executes the CLI and exits non-zero on failure
func Run() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and configures logging from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg.Log.Level)
	return cfg, nil
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// listingStore is what both the listing and view services need from the listings table
type listingStore interface {
	services.ListingStore
	services.ViewStore
}

// stores bundles the repositories of the configured driver
type stores struct {
	users    services.UserStore
	listings listingStore
	votes    services.VoteStore
	close    func()
}

// openStores connects the configured driver. Postgres is pinged before use.
func openStores(ctx context.Context, cfg *config.DatabaseConfig) (*stores, error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory store, data is lost on exit")
		mem := memory.New()
		return &stores{
			users:    mem.Users(),
			listings: mem.Listings(),
			votes:    mem.Votes(),
			close:    func() {},
		}, nil
	}

	db, err := connectDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &stores{
		users:    repository.NewUserRepository(db),
		listings: repository.NewListingRepository(db),
		votes:    repository.NewVoteRepository(db),
		close:    db.Close,
	}, nil
}

// connectDB opens the pool and checks the connection
func connectDB(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Database connection established")

	return db, nil
}
