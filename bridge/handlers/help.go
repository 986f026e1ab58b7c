package handlers

import (
	tele "gopkg.in/telebot.v4"

	"github.com/avelune/xmrbridge/bridge/keyboards"
	"github.com/avelune/xmrbridge/core/telegram/helpers"
)

const helpText = "❓ <b>XMR Multi-Chain Bridge - Help</b>\n" +
	"\n" +
	"<b>Commands:</b>\n" +
	"/start  —  Main menu\n" +
	"/bridge  —  Start a new swap (also via menu)\n" +
	"/rate  —  View current exchange rates\n" +
	"/status <code>ORDER_ID</code>  —  Check order status\n" +
	"/history  —  Your last 10 orders\n" +
	"/settings  —  Adjust slippage tolerance\n" +
	"/help  —  This help message\n" +
	"\n" +
	"<b>Supported Pairs:</b>\n" +
	"XMR ↔ BTC, ETH, TON, SOL, ARB, BASE, USDC, USDT\n" +
	"\n" +
	"<b>FAQ:</b>\n" +
	"\n" +
	"<b>Q: How long does a swap take?</b>\n" +
	"A: Usually 10–40 minutes depending on network confirmations.\n" +
	"\n" +
	"<b>Q: What are the fees?</b>\n" +
	"A: A small percentage fee is applied. The exact fee is shown\n" +
	"   before you confirm each order.\n" +
	"\n" +
	"<b>Q: Is it safe?</b>\n" +
	"A: The bridge uses atomic or hash-locked swaps when possible.\n" +
	"   Funds are never held in a custodial wallet for longer than\n" +
	"   necessary to complete the exchange.\n" +
	"\n" +
	"<b>Q: Can I cancel an order?</b>\n" +
	"A: Only before your deposit is confirmed on-chain. Use\n" +
	"   /status to check, then tap Cancel if available.\n" +
	"\n" +
	"<b>Q: My order is stuck. What do I do?</b>\n" +
	"A: Wait at least 1 hour. If still pending, contact support\n" +
	"   with your order ID.\n" +
	"\n" +
	"<b>Q: What is slippage?</b>\n" +
	"A: The maximum price movement you accept between quote and\n" +
	"   execution. Adjust it in /settings.\n"

// Help shows the command list and FAQ.
func (h *Handlers) Help(c tele.Context) error {
	return helpers.EditOrSendHTML(c, helpText, keyboards.Back(keyboards.CBMenuStart))
}
