package alerts

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"puntoventa/pkg/api"
)

// Notifier pushes stock warnings to whoever watches the shop. Alerts are
// advisory; failures are logged and swallowed.
type Notifier interface {
	LowStock(ctx context.Context, products []api.Product)
}

// Nop is used when no alert channel is configured.
type Nop struct{}

func (Nop) LowStock(ctx context.Context, products []api.Product) {}

// Telegram sends low-stock alerts to an admin chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Info("Alert bot authorized",
		zap.String("username", botAPI.Self.UserName))

	return &Telegram{
		bot:    botAPI,
		chatID: chatID,
		logger: logger,
	}, nil
}

func (t *Telegram) LowStock(ctx context.Context, products []api.Product) {
	if t.chatID == 0 {
		t.logger.Warn("Alert notifications disabled - no chat ID configured")
		return
	}
	if len(products) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString("⚠️ Stock bajo:\n")
	for _, p := range products {
		sb.WriteString(fmt.Sprintf("%s - stock %d (min %d)\n", p.Name, p.Stock, p.MinStock))
	}

	msg := tgbotapi.NewMessage(t.chatID, sb.String())
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error("Failed to send low stock alert",
			zap.Int("products", len(products)),
			zap.Error(err))
	}
}
