package handlers

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/avelune/xmrbridge/bridge/format"
	"github.com/avelune/xmrbridge/bridge/keyboards"
	"github.com/avelune/xmrbridge/core/telegram/helpers"
)

// Rates shows the full rate table. The bulk endpoint is preferred; when it
// fails the pairs are fetched one by one so a single bad pair cannot blank
// the whole view.
func (h *Handlers) Rates(c tele.Context) error {
	ctx := h.reqCtx(c)
	lines := []string{"\U0001f4ca <b>Current Exchange Rates</b>\n"}

	all, err := h.api.AllRates(ctx)
	if err == nil && len(all) > 0 {
		for _, rate := range all {
			lines = append(lines, format.RateLine(rate))
		}
	} else {
		for _, chain := range format.DestChains {
			rate, err := h.api.Rate(ctx, "XMR", chain)
			if err != nil {
				lines = append(lines, "  ⚠️ XMR/"+chain+": unavailable")
				continue
			}
			lines = append(lines, format.RateLine(rate))
		}
	}

	lines = append(lines, "\n\U0001f552 Rates refresh automatically.")
	return helpers.EditOrSendHTML(c, strings.Join(lines, "\n"), keyboards.Back(keyboards.CBMenuStart))
}
