package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rezerv/internal/models"
)

// TelegramNotifier posts reservation reminders to a staff channel.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier creates a notifier for the given bot token and chat.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// SendReservationReminder implements Notifier.
func (n *TelegramNotifier) SendReservationReminder(ctx context.Context, r models.Reservation) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatReminder(r))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// FormatReminder renders the reminder text for a reservation.
func FormatReminder(r models.Reservation) string {
	endMinute := r.Range.EndMinute
	if endMinute == 0 {
		endMinute = models.MinutesPerDay
	}
	return fmt.Sprintf("Upcoming reservation %s\n%s\n%s %s-%s\nRequester: %s (%s)",
		r.ID,
		r.Title,
		r.Range.Date.Format("2006-01-02"),
		models.FormatClock(r.Range.StartMinute),
		models.FormatClock(endMinute),
		r.RequesterName,
		r.RequesterPhone,
	)
}
