package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

type channelSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts one line per transaction event to a channel. It only uses
// the REST API, so no gateway connection is opened.
type Discord struct {
	session   channelSender
	channelID string
}

func NewDiscord(token, channelID string) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return &Discord{session: session, channelID: channelID}, nil
}

func (d *Discord) NotifyTransaction(ctx context.Context, e *amqp.TransactionEvent) error {
	if _, err := d.session.ChannelMessageSend(d.channelID, FormatEvent(e), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

// FormatEvent renders an event as a chat line, e.g.
// "🆕 asha@example.com added Netflix (Streaming): -₹1,799.00".
func FormatEvent(e *amqp.TransactionEvent) string {
	owner := e.UserEmail
	if owner == "" {
		owner = "someone"
	}
	amount := core.FormatSignedINR(core.Money{Cents: e.AmountCents})
	switch e.Action {
	case amqp.ActionCreated:
		return fmt.Sprintf("🆕 %s added %s (%s): %s", owner, e.Name, e.Category, amount)
	case amqp.ActionUpdated:
		return fmt.Sprintf("✏️ %s edited %s (%s): %s", owner, e.Name, e.Category, amount)
	case amqp.ActionDeleted:
		return fmt.Sprintf("🗑️ %s removed %s (%s): %s", owner, e.Name, e.Category, amount)
	default:
		return fmt.Sprintf("%s %s: %s", owner, e.Action, e.Name)
	}
}
