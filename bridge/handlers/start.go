package handlers

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/avelune/xmrbridge/bridge/client"
	"github.com/avelune/xmrbridge/bridge/format"
	"github.com/avelune/xmrbridge/bridge/keyboards"
	"github.com/avelune/xmrbridge/core/telegram/helpers"
)

const welcomeText = "\U0001f309 <b>XMR Multi-Chain Bridge</b>\n\n" +
	"Swap Monero (XMR) to and from:\n" +
	"BTC · ETH · TON · SOL · ARB · BASE · USDC · USDT\n\n" +
	"Fast, private, non-custodial.\n"

// Start shows the main menu, with personal stats when the backend cooperates.
func (h *Handlers) Start(c tele.Context) error {
	text := welcomeText

	orders, err := h.api.Orders(h.reqCtx(c), c.Sender().ID, 100, 0)
	if err == nil && len(orders) > 0 {
		var completed int
		var totalXMR float64
		for _, o := range orders {
			if o.Status == client.StatusCompleted {
				completed++
				totalXMR += o.AmountIn
			}
		}
		text += fmt.Sprintf("\n\U0001f4ca <b>Your stats:</b>\n  Orders: %d total, %d completed\n  Volume: %s\n",
			len(orders), completed, format.Amount(totalXMR, "XMR"))
	}

	return helpers.EditOrSendHTML(c, text, keyboards.MainMenu())
}
