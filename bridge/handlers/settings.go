package handlers

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/avelune/xmrbridge/bridge/keyboards"
	"github.com/avelune/xmrbridge/core/telegram/callbacks"
	"github.com/avelune/xmrbridge/core/telegram/helpers"
)

// Settings shows the slippage tolerance picker.
func (h *Handlers) Settings(c tele.Context) error {
	current := h.sessions.Slippage(c.Sender().ID)
	text := fmt.Sprintf("⚙️ <b>Settings</b>\n\n<b>Slippage tolerance:</b> %v%%\n\nSelect your preferred slippage:", current)
	return helpers.EditOrSendHTML(c, text, keyboards.SlippageSelect(current))
}

// SlippageChosen stores the picked tolerance. It applies to all future orders
// and survives bridge flow restarts.
func (h *Handlers) SlippageChosen(c tele.Context) error {
	value, err := callbacks.PayloadFloat64(c)
	if err != nil || !validSlippage(value) {
		return helpers.SendHTML(c, "⚠️ Invalid slippage value.")
	}
	h.sessions.SetSlippage(c.Sender().ID, value)
	text := fmt.Sprintf("⚙️ <b>Settings</b>\n\n<b>Slippage tolerance:</b> %v%% ✅\n\nSelect your preferred slippage:", value)
	return helpers.EditOrSendHTML(c, text, keyboards.SlippageSelect(value))
}

func validSlippage(v float64) bool {
	for _, opt := range keyboards.SlippageOptions {
		if diff := v - opt; diff < 0.001 && diff > -0.001 {
			return true
		}
	}
	return false
}
