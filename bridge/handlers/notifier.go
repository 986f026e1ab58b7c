package handlers

import (
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/avelune/xmrbridge/bridge/client"
	"github.com/avelune/xmrbridge/bridge/format"
	"github.com/avelune/xmrbridge/core/logger"
)

// MessageSender is the slice of tele.Bot the notifier needs.
type MessageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramNotifier delivers watch outcomes as direct messages. The sender is
// bound after the bot is built; notifications before that are dropped with a
// warning, which can only happen for watches resumed during startup.
type TelegramNotifier struct {
	sender atomic.Pointer[senderBox]
}

type senderBox struct{ s MessageSender }

// NewTelegramNotifier creates a notifier without a bound sender.
func NewTelegramNotifier() *TelegramNotifier {
	return &TelegramNotifier{}
}

// Bind wires the sender used for outgoing notifications.
func (n *TelegramNotifier) Bind(s MessageSender) {
	n.sender.Store(&senderBox{s: s})
}

func (n *TelegramNotifier) send(userID int64, text string) {
	box := n.sender.Load()
	if box == nil || box.s == nil {
		logger.TG.Warn("notification dropped",
			slog.String("event", "notify.no_sender"),
			slog.Int64("user_id", userID),
		)
		return
	}
	_, err := box.s.Send(tele.ChatID(userID), text, &tele.SendOptions{ParseMode: tele.ModeHTML})
	if err != nil {
		logger.TG.Warn("notification failed",
			slog.String("event", "notify.send"),
			slog.Int64("user_id", userID),
			slog.Any("err", err),
		)
	}
}

// StatusChanged sends the refreshed order card.
func (n *TelegramNotifier) StatusChanged(userID int64, order client.Order, _ string) {
	n.send(userID, format.OrderSummary(order))
}

// WatchExpired tells the user the bot stopped following the order.
func (n *TelegramNotifier) WatchExpired(userID int64, order client.Order) {
	n.send(userID,
		"⏰ Status polling timed out for order <code>"+format.Escape(order.ID)+"</code>. "+
			"Use /status "+format.Escape(order.ID)+" to check manually.")
}
