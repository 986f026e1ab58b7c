// Package keyboards builds the inline keyboards of the bridge bot.
// Every callback unique used by the bot is declared here so handlers and
// keyboards can never drift apart.
package keyboards

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/avelune/xmrbridge/bridge/format"
	"github.com/avelune/xmrbridge/bridge/session"
	"github.com/avelune/xmrbridge/core/telegram/keyboard"
)

// Callback uniques. The payload, when present, rides after '|' in the data.
const (
	CBMenuStart        = "menu_start"
	CBMenuBridge       = "menu_bridge"
	CBMenuBridgeCancel = "menu_bridge_cancel"
	CBMenuRates        = "menu_rates"
	CBMenuHistory      = "menu_history"
	CBMenuSettings     = "menu_settings"
	CBMenuHelp         = "menu_help"
	CBDirection        = "dir_type"
	CBChain            = "chain"
	CBAmount           = "amount"
	CBConfirmBridge    = "confirm_bridge"
	CBCancelBridge     = "cancel_bridge"
	CBSlippage         = "slippage"
	CBOrderRefresh     = "order_refresh"
	CBOrderCancel      = "order_cancel"
	CBHistoryDetail    = "history_detail"
)

// AmountPresets are the quick-pick amounts offered before the custom option.
var AmountPresets = []string{"0.1", "0.5", "1.0", "5.0"}

// SlippageOptions are the tolerances offered in /settings, in percent.
var SlippageOptions = []float64{0.1, 0.3, 0.5, 1.0, 2.0, 3.0}

func backBtn(unique string) keyboard.InlineBtn {
	return keyboard.InlineBtn{Text: "⬅️ Back", Unique: unique}
}

// MainMenu is the top-level menu attached to /start.
func MainMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "\U0001f309 Bridge", Unique: CBMenuBridge},
			{Text: "\U0001f4ca Rates", Unique: CBMenuRates},
		},
		[]keyboard.InlineBtn{
			{Text: "\U0001f4dc History", Unique: CBMenuHistory},
			{Text: "⚙️ Settings", Unique: CBMenuSettings},
		},
		[]keyboard.InlineBtn{
			{Text: "❓ Help", Unique: CBMenuHelp},
		},
	)
}

// DirectionSelect offers the two bridge directions.
func DirectionSelect() *tele.ReplyMarkup {
	xmr := format.ChainEmoji["XMR"]
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: xmr + " XMR → ...", Unique: CBDirection, Data: string(session.DirectionFromXMR)},
			{Text: "... → " + xmr + " XMR", Unique: CBDirection, Data: string(session.DirectionToXMR)},
		},
		[]keyboard.InlineBtn{backBtn(CBMenuBridgeCancel)},
	)
}

// ChainSelect is the 2-column grid of counterpart chains. The direction rides
// in the payload so the handler does not depend on session state to parse it.
func ChainSelect(direction session.Direction) *tele.ReplyMarkup {
	buttons := make([]keyboard.InlineBtn, 0, len(format.DestChains))
	for _, sym := range format.DestChains {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   format.ChainEmoji[sym] + " " + sym,
			Unique: CBChain,
			Data:   string(direction) + "|" + sym,
		})
	}
	rows := chunk(buttons, 2)
	rows = append(rows, []keyboard.InlineBtn{backBtn(CBMenuBridge)})
	return keyboard.InlineButtonsRows(rows...)
}

// AmountSelect offers preset amounts plus a custom entry.
func AmountSelect(fromCurrency string) *tele.ReplyMarkup {
	row := make([]keyboard.InlineBtn, 0, len(AmountPresets))
	for _, p := range AmountPresets {
		row = append(row, keyboard.InlineBtn{
			Text:   p + " " + fromCurrency,
			Unique: CBAmount,
			Data:   p,
		})
	}
	return keyboard.InlineButtonsRows(
		row,
		[]keyboard.InlineBtn{{Text: "✏️ Custom amount", Unique: CBAmount, Data: "custom"}},
		[]keyboard.InlineBtn{backBtn(CBMenuBridge)},
	)
}

// ConfirmCancel is the final yes/no of the bridge flow.
func ConfirmCancel() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "✅ Confirm", Unique: CBConfirmBridge},
		{Text: "❌ Cancel", Unique: CBCancelBridge},
	})
}

// SlippageSelect marks the currently active tolerance.
func SlippageSelect(current float64) *tele.ReplyMarkup {
	buttons := make([]keyboard.InlineBtn, 0, len(SlippageOptions))
	for _, opt := range SlippageOptions {
		text := fmt.Sprintf("%v%%", opt)
		if diff := opt - current; diff < 0.01 && diff > -0.01 {
			text += " ✅"
		}
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   text,
			Unique: CBSlippage,
			Data:   fmt.Sprintf("%v", opt),
		})
	}
	rows := chunk(buttons, 3)
	rows = append(rows, []keyboard.InlineBtn{backBtn(CBMenuStart)})
	return keyboard.InlineButtonsRows(rows...)
}

// OrderDetail offers refresh and cancel for a single order view.
func OrderDetail(orderID string) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "\U0001f504 Refresh", Unique: CBOrderRefresh, Data: orderID},
			{Text: "❌ Cancel order", Unique: CBOrderCancel, Data: orderID},
		},
		[]keyboard.InlineBtn{backBtn(CBMenuHistory)},
	)
}

// HistoryList turns a list of order IDs into detail buttons, one per row.
func HistoryList(orderIDs []string) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(orderIDs)+1)
	for _, id := range orderIDs {
		rows = append(rows, []keyboard.InlineBtn{{
			Text:   "\U0001f50e " + format.TruncateAddress(id),
			Unique: CBHistoryDetail,
			Data:   id,
		}})
	}
	rows = append(rows, []keyboard.InlineBtn{backBtn(CBMenuStart)})
	return keyboard.InlineButtonsRows(rows...)
}

// Back is a single back button pointing at the given menu callback.
func Back(unique string) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{backBtn(unique)})
}

func chunk(buttons []keyboard.InlineBtn, n int) [][]keyboard.InlineBtn {
	var rows [][]keyboard.InlineBtn
	for i := 0; i < len(buttons); i += n {
		end := i + n
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[i:end])
	}
	return rows
}
