// Package alert delivers run-failure notifications over Telegram. Delivery
// is best effort: a lost alert is logged and never affects the run outcome.
package alert

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"
)

type Notifier struct {
	bot    *telego.Bot
	chatID int64
	log    *zap.Logger
}

func NewNotifier(token string, chatID int64, log *zap.Logger) (*Notifier, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Notifier{bot: bot, chatID: chatID, log: log}, nil
}

// NotifyFailure reports an unrecoverable run failure. Safe on a nil receiver
// so callers do not special-case a disabled notifier.
func (n *Notifier) NotifyFailure(ctx context.Context, runID string, runErr error) {
	if n == nil {
		return
	}

	text := fmt.Sprintf("❌ Referral reconciliation run %s failed:\n%v", runID, runErr)
	if _, err := n.bot.SendMessage(ctx, tu.Message(tu.ID(n.chatID), text)); err != nil {
		n.log.Warn("failure alert not delivered", zap.Error(err))
	}
}
