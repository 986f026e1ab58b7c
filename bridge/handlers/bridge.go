package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/avelune/xmrbridge/bridge/client"
	"github.com/avelune/xmrbridge/bridge/format"
	"github.com/avelune/xmrbridge/bridge/keyboards"
	"github.com/avelune/xmrbridge/bridge/session"
	"github.com/avelune/xmrbridge/core/logger"
	"github.com/avelune/xmrbridge/core/telegram/callbacks"
	"github.com/avelune/xmrbridge/core/telegram/helpers"
)

// BridgeStart opens the bridge flow at the direction step. Any in-flight flow
// for the user is discarded first.
func (h *Handlers) BridgeStart(c tele.Context) error {
	h.sessions.StartFlow(c.Sender().ID)
	text := "\U0001f504 <b>Select bridge direction</b>\n\n" +
		"Are you sending XMR or receiving XMR?"
	return helpers.EditOrSendHTML(c, text, keyboards.DirectionSelect())
}

// BridgeCancel aborts the flow from any step. Safe to repeat.
func (h *Handlers) BridgeCancel(c tele.Context) error {
	h.sessions.ResetFlow(c.Sender().ID)
	return helpers.EditOrSendHTML(c, "❌ Bridge cancelled.", keyboards.Back(keyboards.CBMenuStart))
}

// DirectionChosen records the direction and moves to chain selection.
func (h *Handlers) DirectionChosen(c tele.Context) error {
	direction := session.Direction(callbacks.CallbackPayload(c))
	if direction != session.DirectionFromXMR && direction != session.DirectionToXMR {
		return helpers.SendHTML(c, "⚠️ Unknown direction, please start over with /bridge.")
	}

	h.sessions.Update(c.Sender().ID, func(s *session.Session) {
		s.Direction = direction
		s.State = session.StateChoosingChain
	})

	var text string
	if direction == session.DirectionFromXMR {
		text = "\U0001f4e4 <b>XMR → ?</b>\nSelect the destination chain/token:"
	} else {
		text = "\U0001f4e5 <b>? → XMR</b>\nSelect the source chain/token:"
	}
	return helpers.EditOrSendHTML(c, text, keyboards.ChainSelect(direction))
}

// ChainChosen resolves the currency pair from the payload and asks for the amount.
func (h *Handlers) ChainChosen(c tele.Context) error {
	parts, err := callbacks.PayloadParts(c, "|")
	if err != nil || len(parts) != 2 {
		return helpers.SendHTML(c, "⚠️ Unknown chain, please start over with /bridge.")
	}
	direction, chain := session.Direction(parts[0]), parts[1]
	if !slices.Contains(format.DestChains, chain) {
		return helpers.SendHTML(c, "⚠️ Unknown chain, please start over with /bridge.")
	}

	fromCur, toCur := "XMR", chain
	if direction == session.DirectionToXMR {
		fromCur, toCur = chain, "XMR"
	}

	h.sessions.Update(c.Sender().ID, func(s *session.Session) {
		s.FromCurrency = fromCur
		s.ToCurrency = toCur
		s.State = session.StateEnteringAmount
	})

	// The rate is decoration here; a failed lookup must not block the flow.
	rateText := ""
	if rate, err := h.api.Rate(h.reqCtx(c), fromCur, toCur); err == nil && rate.Rate > 0 {
		rateText = fmt.Sprintf("\n\U0001f4b1 Rate: 1 %s ≈ %.6f %s\n", fromCur, rate.Rate, toCur)
	}

	text := fmt.Sprintf("%s <b>%s → %s</b> %s\n%s\nEnter the amount of <b>%s</b> to send,\nor pick a preset:",
		format.ChainEmoji[fromCur], fromCur, toCur, format.ChainEmoji[toCur], rateText, fromCur)
	return helpers.EditOrSendHTML(c, text, keyboards.AmountSelect(fromCur))
}

// AmountChosen handles the preset buttons, including the custom entry.
func (h *Handlers) AmountChosen(c tele.Context) error {
	payload := callbacks.CallbackPayload(c)
	if payload == "custom" {
		return helpers.EditOrSendHTML(c, "✏️ Please type the amount:", keyboards.Back(keyboards.CBMenuBridge))
	}
	amount, err := strconv.ParseFloat(payload, 64)
	if err != nil || !(amount > 0) || math.IsInf(amount, 1) {
		return helpers.SendHTML(c, "⚠️ Invalid amount.")
	}
	return h.acceptAmount(c, amount)
}

// flowText consumes typed input while the flow expects an amount or address.
func (h *Handlers) flowText(c tele.Context) error {
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())

	switch h.sessions.State(userID) {
	case session.StateEnteringAmount:
		// NaN compares false against everything, so the positivity check is
		// written to fail it too; ParseFloat also accepts "Inf".
		amount, err := strconv.ParseFloat(text, 64)
		if err != nil || !(amount > 0) || math.IsInf(amount, 1) {
			return helpers.SendHTML(c, "⚠️ Please enter a valid positive number.")
		}
		return h.acceptAmount(c, amount)
	case session.StateEnteringAddress:
		return h.acceptAddress(c, text)
	default:
		return helpers.SendHTML(c, "⚠️ Please use the buttons above, or /bridge to start over.")
	}
}

func (h *Handlers) acceptAmount(c tele.Context, amount float64) error {
	var toCur string
	h.sessions.Update(c.Sender().ID, func(s *session.Session) {
		s.Amount = amount
		s.State = session.StateEnteringAddress
		toCur = s.ToCurrency
	})

	text := fmt.Sprintf("\U0001f4cd <b>Destination address</b>\n\nSend your <b>%s</b> receiving address:", toCur)
	return helpers.EditOrSendHTML(c, text, keyboards.Back(keyboards.CBMenuBridge))
}

func (h *Handlers) acceptAddress(c tele.Context, address string) error {
	if len(address) < 10 {
		return helpers.SendHTML(c, "⚠️ That doesn't look like a valid address. Please try again.")
	}

	userID := c.Sender().ID
	h.sessions.Update(userID, func(s *session.Session) {
		s.DestinationAddress = address
		s.State = session.StateConfirming
	})
	sess := h.sessions.Get(userID)

	// Fee breakdown is best effort: the quote may be stale by execution time
	// anyway, slippage tolerance covers the difference.
	rateLine := "⚠️ Could not fetch live rate.\n"
	feeLine, outLine := "", ""
	if rate, err := h.api.Rate(h.reqCtx(c), sess.FromCurrency, sess.ToCurrency); err == nil && rate.Rate > 0 {
		gross := sess.Amount * rate.Rate
		fee := gross * rate.Fee() / 100
		net := gross - fee
		rateLine = fmt.Sprintf("\U0001f4b1 <b>Rate:</b> 1 %s = %.6f %s\n", sess.FromCurrency, rate.Rate, sess.ToCurrency)
		feeLine = fmt.Sprintf("\U0001f4b8 <b>Fee:</b> %v%% (%s)\n", rate.Fee(), format.Amount(fee, sess.ToCurrency))
		outLine = fmt.Sprintf("\U0001f4e6 <b>You receive:</b> ~%s\n", format.Amount(net, sess.ToCurrency))
	}

	text := fmt.Sprintf("\U0001f50d <b>Order Summary</b>\n\n%s <b>Send:</b> %s\n%s <b>To:</b> %s\n%s%s%s\nConfirm to proceed?",
		format.ChainEmoji[sess.FromCurrency], format.Amount(sess.Amount, sess.FromCurrency),
		format.ChainEmoji[sess.ToCurrency], format.Escape(format.TruncateAddress(address)),
		rateLine, feeLine, outLine)
	return helpers.SendHTML(c, text, keyboards.ConfirmCancel())
}

// ConfirmOrder submits the order. The quota is checked before the call and
// recorded only after the backend confirms creation; a rejected or failed
// creation therefore never consumes quota.
func (h *Handlers) ConfirmOrder(c tele.Context) error {
	userID := c.Sender().ID
	sess := h.sessions.Get(userID)
	if sess.State != session.StateConfirming {
		return helpers.SendHTML(c, "⚠️ Nothing to confirm. Start with /bridge.")
	}

	if !h.limiter.CanCreateOrder(userID) {
		return helpers.SendHTML(c,
			fmt.Sprintf("⚠️ You can only create %d orders per hour. Please try again later.", h.limiter.OrderLimit()))
	}

	_ = helpers.EditOrSendHTML(c, "⏳ Creating your order...")

	order, err := h.api.CreateOrder(h.reqCtx(c), client.CreateOrderRequest{
		TGUserID:           userID,
		FromCurrency:       sess.FromCurrency,
		ToCurrency:         sess.ToCurrency,
		Amount:             sess.Amount,
		DestinationAddress: sess.DestinationAddress,
		Slippage:           sess.Slippage,
	})
	if err != nil {
		h.sessions.ResetFlow(userID)
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return helpers.SendHTML(c,
				fmt.Sprintf("❌ Order failed: %s", format.Escape(apiErr.Detail)),
				keyboards.Back(keyboards.CBMenuBridge))
		}
		logger.TG.Error("order creation failed",
			slog.String("event", "bridge.create_order"),
			slog.Int64("user_id", userID),
			slog.Any("err", err),
		)
		return helpers.SendHTML(c, "❌ Unexpected error. Please try again later.", keyboards.Back(keyboards.CBMenuStart))
	}

	h.limiter.RecordOrder(userID)
	h.sessions.ResetFlow(userID)

	text := fmt.Sprintf("✅ <b>Order Created!</b>\n\n\U0001f194 <code>%s</code>\n\n"+
		"\U0001f4e5 <b>Deposit %s to:</b>\n<code>%s</code>\n\n"+
		"⏳ The bot will notify you when the swap completes.\nUse /status %s to check manually.",
		format.Escape(order.ID), format.Amount(sess.Amount, sess.FromCurrency),
		format.Escape(order.DepositAddress), format.Escape(order.ID))
	err = helpers.EditOrSendHTML(c, text, keyboards.Back(keyboards.CBMenuStart))

	h.watcher.Watch(h.ctx, userID, order)
	return err
}
