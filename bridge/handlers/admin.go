package handlers

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/avelune/xmrbridge/bridge/format"
	"github.com/avelune/xmrbridge/bridge/keyboards"
	"github.com/avelune/xmrbridge/core/telegram/helpers"
)

const adminPendingCap = 20

// Admin shows aggregate stats and in-flight orders. The two sections degrade
// independently so one broken endpoint still leaves a usable dashboard.
// Access control is enforced by the admin-only command middleware.
func (h *Handlers) Admin(c tele.Context) error {
	text := h.adminStatsText(c) + "\n\n" + strings.Repeat("=", 30) + "\n\n" + h.adminPendingText(c)
	return helpers.EditOrSendHTML(c, text, keyboards.Back(keyboards.CBMenuStart))
}

func (h *Handlers) adminStatsText(c tele.Context) string {
	stats, err := h.api.Stats(h.reqCtx(c))
	if err != nil {
		return "⚠️ Could not fetch stats from backend."
	}
	return strings.Join([]string{
		"\U0001f4ca <b>Admin Dashboard</b>\n",
		fmt.Sprintf("<b>Total orders:</b> %d", stats.TotalOrders),
		fmt.Sprintf("<b>Completed:</b> %d", stats.CompletedOrders),
		fmt.Sprintf("<b>Pending:</b> %d", stats.PendingOrders),
		fmt.Sprintf("<b>Failed:</b> %d", stats.FailedOrders),
		fmt.Sprintf("<b>Total volume:</b> %s", format.Amount(stats.TotalVolumeXMR, "XMR")),
		fmt.Sprintf("<b>Total fees:</b> %s", format.Amount(stats.TotalFeesXMR, "XMR")),
		fmt.Sprintf("<b>Unique users:</b> %d", stats.UniqueUsers),
	}, "\n")
}

func (h *Handlers) adminPendingText(c tele.Context) string {
	orders, err := h.api.PendingOrders(h.reqCtx(c))
	if err != nil {
		return "⚠️ Could not fetch pending orders."
	}
	if len(orders) == 0 {
		return "✅ No pending orders."
	}

	lines := []string{fmt.Sprintf("⏳ <b>Pending Orders (%d)</b>\n", len(orders))}
	shown := orders
	if len(shown) > adminPendingCap {
		shown = shown[:adminPendingCap]
	}
	for _, o := range shown {
		emoji, ok := format.StatusEmoji[o.Status]
		if !ok {
			emoji = "❓"
		}
		lines = append(lines, fmt.Sprintf("  %s <code>%s</code> %s→%s %s → %s",
			emoji, format.Escape(shortID(o.ID)), o.FromCurrency, o.ToCurrency,
			format.Amount(o.AmountIn, o.FromCurrency),
			format.Escape(format.TruncateAddress(o.DestinationAddress))))
	}
	return strings.Join(lines, "\n")
}
