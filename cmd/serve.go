package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vape-market-backend/internal/config"
	"vape-market-backend/internal/handlers"
	"vape-market-backend/internal/services"
	"vape-market-backend/internal/telegram"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var withBot bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Mini App API and the live feed",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&withBot, "with-bot", false, "also run the Telegram bot in this process")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer st.close()

	// Initialize services
	identity := services.NewIdentityService(st.users, cfg.Market.Admins, cfg.JWT.Secret, cfg.JWT.TTL)
	listingService := services.NewListingService(st.listings, identity, cfg.Market)
	voteService := services.NewVoteService(st.votes, cfg.Market.VoteAttempts)
	viewService := services.NewViewService(st.listings)
	wsHub := services.NewWSHub()

	router := handlers.NewRouter(handlers.Deps{
		Identity:       identity,
		Listings:       listingService,
		Votes:          voteService,
		Views:          viewService,
		Hub:            wsHub,
		BotToken:       cfg.Telegram.BotToken,
		InitDataMaxAge: cfg.Telegram.InitDataMaxAge,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		wsHub.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	g.Go(func() error {
		sweepExpired(gctx, listingService, cfg.Market.SweepInterval)
		return nil
	})

	if withBot {
		b, err := newBot(cfg, listingService)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error { return b.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Msg("Server exited")
	return nil
}

// sweepExpired deactivates stale listings every interval until ctx ends
func sweepExpired(ctx context.Context, listings *services.ListingService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := listings.ExpireStale(ctx); err != nil {
				log.Warn().Err(err).Msg("Expiry sweep failed")
			}
		}
	}
}

func newBot(cfg *config.Config, listings *services.ListingService) (*telegram.Bot, error) {
	if cfg.Telegram.BotToken == "" {
		return nil, errors.New("telegram.bot_token is required to run the bot")
	}
	return telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.WebAppURL, listings)
}
