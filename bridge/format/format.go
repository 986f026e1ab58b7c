// Package format renders orders, rates and amounts as Telegram HTML.
package format

import (
	"fmt"
	"html"
	"strings"

	"github.com/avelune/xmrbridge/bridge/client"
)

// DestChains lists the chains and tokens XMR bridges to and from,
// in the order they appear on the selection keyboard.
var DestChains = []string{"BTC", "ETH", "TON", "SOL", "ARB", "BASE", "USDC", "USDT"}

// ChainEmoji maps a chain symbol to its display emoji.
var ChainEmoji = map[string]string{
	"XMR":  "\U0001f6e1️",
	"BTC":  "\U0001fa99",
	"ETH":  "\U0001f4a0",
	"TON":  "\U0001f48e",
	"SOL":  "☀️",
	"ARB":  "\U0001f309",
	"BASE": "\U0001f535",
	"USDC": "\U0001f4b2",
	"USDT": "\U0001f4b5",
}

// StatusEmoji maps an order status to its display emoji.
var StatusEmoji = map[string]string{
	client.StatusPending:         "⏳",
	client.StatusAwaitingDeposit: "\U0001f4e5",
	client.StatusConfirming:      "⛏️",
	client.StatusExchanging:      "\U0001f504",
	client.StatusSending:         "\U0001f680",
	client.StatusCompleted:       "✅",
	client.StatusFailed:          "❌",
	client.StatusRefunded:        "\U0001f519",
	client.StatusExpired:         "⏰",
	client.StatusCancelled:       "\U0001f6ab",
}

// Escape makes arbitrary text safe to embed in HTML-mode messages.
// Every user-supplied string that is echoed back goes through here.
func Escape(s string) string {
	return html.EscapeString(s)
}

// StatusLabel turns snake_case statuses into title case for display.
func StatusLabel(status string) string {
	words := strings.Split(status, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ProgressBar renders the happy-path stages with the current one highlighted.
// Terminal failure states have no position on the bar; every stage stays open.
func ProgressBar(status string) string {
	idx := -1
	for i, stage := range client.ProgressStages {
		if stage == status {
			idx = i
			break
		}
	}
	parts := make([]string, 0, len(client.ProgressStages))
	for i := range client.ProgressStages {
		switch {
		case idx >= 0 && i < idx:
			parts = append(parts, "✅")
		case i == idx:
			parts = append(parts, "\U0001f7e2")
		default:
			parts = append(parts, "⚪")
		}
	}
	return strings.Join(parts, " ")
}

// OrderSummary renders the rich order card shown by /status and the watcher.
func OrderSummary(order client.Order) string {
	emoji, ok := StatusEmoji[order.Status]
	if !ok {
		emoji = "❓"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>Order</b>  <code>%s</code>\n\n", emoji, Escape(order.ID))
	b.WriteString(ProgressBar(order.Status))
	b.WriteString("\n")
	fmt.Fprintf(&b, "<b>Status:</b> %s\n", StatusLabel(order.Status))
	fmt.Fprintf(&b, "<b>Send:</b>  %s\n", Amount(order.AmountIn, order.FromCurrency))
	fmt.Fprintf(&b, "<b>Receive:</b> %s", Amount(order.AmountOut, order.ToCurrency))

	if order.DepositAddress != "" {
		fmt.Fprintf(&b, "\n<b>Deposit to:</b> <code>%s</code>", Escape(order.DepositAddress))
	}
	if order.DestinationAddress != "" {
		fmt.Fprintf(&b, "\n<b>Destination:</b> <code>%s</code>", Escape(TruncateAddress(order.DestinationAddress)))
	}
	if order.Fee != 0 {
		fmt.Fprintf(&b, "\n<b>Fee:</b> %v", order.Fee)
	}
	if order.CreatedAt != "" {
		fmt.Fprintf(&b, "\n<b>Created:</b> %s", Escape(order.CreatedAt))
	}
	return b.String()
}

// RateLine formats one exchange rate, e.g. "1 XMR ≈ 52.350000 TON 💎".
func RateLine(rate client.Rate) string {
	line := fmt.Sprintf("%s 1 %s  ≈  %s %s %s",
		ChainEmoji[rate.FromCurrency], rate.FromCurrency,
		decimal(rate.Rate, rate.ToCurrency), rate.ToCurrency,
		ChainEmoji[rate.ToCurrency])
	if rate.Change24h != nil {
		arrow := "\U0001f4c8"
		if *rate.Change24h < 0 {
			arrow = "\U0001f4c9"
		}
		line += fmt.Sprintf("  %s %+.2f%%", arrow, *rate.Change24h)
	}
	return strings.TrimRight(line, " ")
}

// Amount formats a value with its symbol, e.g. "1.500000 XMR".
// Stablecoins get 2 decimal places, everything else 6.
func Amount(value float64, symbol string) string {
	return decimal(value, symbol) + " " + symbol
}

func decimal(value float64, symbol string) string {
	if symbol == "USDC" || symbol == "USDT" {
		return fmt.Sprintf("%.2f", value)
	}
	return fmt.Sprintf("%.6f", value)
}

// TruncateAddress shortens a blockchain address for display: "4Ab3de...xyz9".
func TruncateAddress(addr string) string {
	const prefix, suffix = 6, 4
	if addr == "" {
		return "N/A"
	}
	if len(addr) <= prefix+suffix+3 {
		return addr
	}
	return addr[:prefix] + "..." + addr[len(addr)-suffix:]
}
