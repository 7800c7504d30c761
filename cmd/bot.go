package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"vape-market-backend/internal/services"

	"github.com/spf13/cobra"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram launch bot alone",
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
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

	identity := services.NewIdentityService(st.users, cfg.Market.Admins, cfg.JWT.Secret, cfg.JWT.TTL)
	listingService := services.NewListingService(st.listings, identity, cfg.Market)

	b, err := newBot(cfg, listingService)
	if err != nil {
		return err
	}
	return b.Run(ctx)
}
