package telegram

import (
	"context"
	"fmt"
	"strings"

	"vape-market-backend/internal/models"
	"vape-market-backend/internal/services"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const latestCount = 5

// FeedSource is the part of the listing service the bot reads
type FeedSource interface {
	ListActive(ctx context.Context, filter models.ListingFilter) *services.Feed
}

// Bot is the launch surface: it opens the Mini App and previews the feed
type Bot struct {
	api       *bot.Bot
	feed      FeedSource
	webAppURL string
	printer   *message.Printer
}

// NewBot connects to the Bot API and registers the command handlers
func NewBot(token, webAppURL string, feed FeedSource) (*Bot, error) {
	b := &Bot{
		feed:      feed,
		webAppURL: webAppURL,
		printer:   message.NewPrinter(language.Russian),
	}

	api, err := bot.New(token, bot.WithDefaultHandler(b.onStart))
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.onStart)
	api.RegisterHandler(bot.HandlerTypeMessageText, "/latest", bot.MatchTypePrefix, b.onLatest)
	b.api = api

	return b, nil
}

// Run polls for updates until ctx is cancelled
func (b *Bot) Run(ctx context.Context) error {
	log.Info().Msg("Telegram bot started")
	b.api.Start(ctx)
	log.Info().Msg("Telegram bot stopped")
	return nil
}

func (b *Bot) onStart(ctx context.Context, api *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	_, err := api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        "Барахолка вейп-товаров: покупайте, продавайте, оценивайте объявления.",
		ReplyMarkup: b.openAppMarkup(),
	})
	if err != nil {
		log.Error().Err(err).Int64("chat_id", update.Message.Chat.ID).Msg("Failed to send start message")
	}
}

func (b *Bot) onLatest(ctx context.Context, api *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	feed := b.feed.ListActive(ctx, models.ListingFilter{Limit: latestCount})

	_, err := api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        b.formatLatest(feed),
		ReplyMarkup: b.openAppMarkup(),
	})
	if err != nil {
		log.Error().Err(err).Int64("chat_id", update.Message.Chat.ID).Msg("Failed to send latest listings")
	}
}

func (b *Bot) openAppMarkup() *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{{
			{Text: "Открыть барахолку", WebApp: &tgmodels.WebAppInfo{URL: b.webAppURL}},
		}},
	}
}

// formatLatest renders a feed page as a plain text message
func (b *Bot) formatLatest(feed *services.Feed) string {
	if feed.Degraded {
		return "Объявления временно недоступны, попробуйте позже."
	}
	if len(feed.Listings) == 0 {
		return "Пока нет активных объявлений."
	}

	var sb strings.Builder
	sb.WriteString("Свежие объявления:\n")
	for i, l := range feed.Listings {
		fmt.Fprintf(&sb, "\n%d. %s (%s)\n   %s · 👍 %d 👎 %d",
			i+1, l.Title, categoryName(l.Category), b.formatPrice(l.Price), l.Likes, l.Dislikes)
	}
	return sb.String()
}

func (b *Bot) formatPrice(price int64) string {
	if price == 0 {
		return "цена договорная"
	}
	return b.printer.Sprintf("%d ₽", price)
}

func categoryName(id string) string {
	for _, c := range models.Categories {
		if c.ID == id {
			return c.Name
		}
	}
	return id
}
