package handlers

import (
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/avelune/xmrbridge/bridge/client"
	"github.com/avelune/xmrbridge/bridge/format"
	"github.com/avelune/xmrbridge/bridge/keyboards"
	"github.com/avelune/xmrbridge/core/telegram/callbacks"
	"github.com/avelune/xmrbridge/core/telegram/helpers"
)

// Status handles "/status <order_id>".
func (h *Handlers) Status(c tele.Context) error {
	args := strings.Fields(c.Text())
	if len(args) < 2 {
		return helpers.SendHTML(c, "❓ Usage: /status <code>ORDER_ID</code>")
	}
	return h.showOrder(c, args[1])
}

func (h *Handlers) showOrder(c tele.Context, orderID string) error {
	order, err := h.api.Order(h.reqCtx(c), orderID)
	if err != nil {
		if client.IsNotFound(err) {
			return helpers.SendHTML(c, "❌ Order <code>"+format.Escape(orderID)+"</code> not found.")
		}
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return helpers.SendHTML(c, "⚠️ Error fetching order: "+format.Escape(apiErr.Detail))
		}
		return helpers.SendHTML(c, "⚠️ Could not reach the backend. Try again later.")
	}
	return helpers.EditOrSendHTML(c, format.OrderSummary(order), keyboards.OrderDetail(order.ID))
}

// OrderRefresh re-fetches an order from its detail view.
func (h *Handlers) OrderRefresh(c tele.Context) error {
	orderID := callbacks.CallbackPayload(c)
	if orderID == "" {
		return helpers.SendHTML(c, "⚠️ Could not refresh order.")
	}
	return h.showOrder(c, orderID)
}

// OrderCancel asks the backend to cancel an order. The backend refuses once
// the deposit is confirmed; its reason is relayed verbatim.
func (h *Handlers) OrderCancel(c tele.Context) error {
	orderID := callbacks.CallbackPayload(c)
	order, err := h.api.CancelOrder(h.reqCtx(c), orderID)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return helpers.SendHTML(c, "⚠️ Cannot cancel: "+format.Escape(apiErr.Detail))
		}
		return helpers.SendHTML(c, "⚠️ Error cancelling order.")
	}
	return helpers.EditOrSendHTML(c, format.OrderSummary(order), keyboards.Back(keyboards.CBMenuHistory))
}

// HistoryDetail opens one order from the history list.
func (h *Handlers) HistoryDetail(c tele.Context) error {
	orderID := callbacks.CallbackPayload(c)
	if orderID == "" {
		return helpers.SendHTML(c, "⚠️ Could not load order.")
	}
	return h.showOrder(c, orderID)
}
