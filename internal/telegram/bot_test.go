package telegram

import (
	"strings"
	"testing"
	"unicode"

	"vape-market-backend/internal/models"
	"vape-market-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func newTestBot() *Bot {
	return &Bot{
		webAppURL: "https://market.example.com",
		printer:   message.NewPrinter(language.Russian),
	}
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func TestFormatPrice(t *testing.T) {
	b := newTestBot()

	got := b.formatPrice(1500000)
	assert.True(t, strings.HasSuffix(got, "₽"))
	assert.Equal(t, "1500000", digits(got))
	assert.NotContains(t, got, "1500000", "thousands should be grouped")

	assert.Equal(t, "цена договорная", b.formatPrice(0))
}

func TestFormatPriceWholeRubles(t *testing.T) {
	b := newTestBot()
	got := b.formatPrice(1800)
	assert.Equal(t, "1800", digits(got))
	assert.True(t, strings.HasSuffix(got, "₽"))
}

func TestFormatLatest(t *testing.T) {
	b := newTestBot()

	assert.Contains(t, b.formatLatest(&services.Feed{Degraded: true}), "недоступны")
	assert.Contains(t, b.formatLatest(&services.Feed{}), "нет активных")

	text := b.formatLatest(&services.Feed{Listings: []*models.Listing{
		{Title: "Voopoo Drag X", Category: "mod", Price: 4200, Likes: 3, Dislikes: 1},
		{Title: "Husky Double Ice", Category: "liquid"},
	}})
	assert.Contains(t, text, "1. Voopoo Drag X (Моды)")
	assert.Contains(t, text, "👍 3 👎 1")
	assert.Contains(t, text, "2. Husky Double Ice (Жидкости)")
	assert.Contains(t, text, "цена договорная")
}

func TestOpenAppMarkup(t *testing.T) {
	markup := newTestBot().openAppMarkup()
	button := markup.InlineKeyboard[0][0]
	if assert.NotNil(t, button.WebApp) {
		assert.Equal(t, "https://market.example.com", button.WebApp.URL)
	}
}
