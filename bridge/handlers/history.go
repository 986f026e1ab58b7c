package handlers

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/avelune/xmrbridge/bridge/format"
	"github.com/avelune/xmrbridge/bridge/keyboards"
	"github.com/avelune/xmrbridge/core/telegram/helpers"
	"github.com/avelune/xmrbridge/core/telegram/keyboard"
)

const historyLimit = 10

// History shows the user's most recent orders as a tappable list.
func (h *Handlers) History(c tele.Context) error {
	orders, err := h.api.Orders(h.reqCtx(c), c.Sender().ID, historyLimit, 0)
	if err != nil {
		return helpers.EditOrSendHTML(c, "⚠️ Could not load your order history.", keyboards.Back(keyboards.CBMenuStart))
	}
	if len(orders) == 0 {
		return helpers.EditOrSendHTML(c,
			"\U0001f4dc <b>Order History</b>\n\nYou have no orders yet.",
			keyboards.Back(keyboards.CBMenuStart))
	}

	lines := []string{fmt.Sprintf("\U0001f4dc <b>Order History</b> (last %d)\n", historyLimit)}
	rows := make([][]keyboard.InlineBtn, 0, len(orders)+1)
	for _, o := range orders {
		emoji, ok := format.StatusEmoji[o.Status]
		if !ok {
			emoji = "❓"
		}
		lines = append(lines, fmt.Sprintf("  %s <code>%s</code> %s%s→%s%s %s",
			emoji, format.Escape(shortID(o.ID)),
			format.ChainEmoji[o.FromCurrency], o.FromCurrency,
			o.ToCurrency, format.ChainEmoji[o.ToCurrency],
			format.Amount(o.AmountIn, o.FromCurrency)))
		rows = append(rows, []keyboard.InlineBtn{{
			Text:   fmt.Sprintf("%s %s - %s", emoji, shortID(o.ID), o.Status),
			Unique: keyboards.CBHistoryDetail,
			Data:   o.ID,
		}})
	}
	rows = append(rows, []keyboard.InlineBtn{{Text: "⬅️ Back", Unique: keyboards.CBMenuStart}})

	return helpers.EditOrSendHTML(c, strings.Join(lines, "\n"), keyboard.InlineButtonsRows(rows...))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
