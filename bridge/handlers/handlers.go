// Package handlers implements every command, callback and conversation step of
// the bridge bot. All state lives in the injected components; handlers
// themselves are stateless and safe for concurrent updates.
package handlers

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/avelune/xmrbridge/bridge/client"
	"github.com/avelune/xmrbridge/bridge/keyboards"
	"github.com/avelune/xmrbridge/bridge/ratelimit"
	"github.com/avelune/xmrbridge/bridge/session"
	"github.com/avelune/xmrbridge/bridge/watch"
	tg "github.com/avelune/xmrbridge/core/telegram"
	"github.com/avelune/xmrbridge/core/telegram/commands"
	"github.com/avelune/xmrbridge/core/telegram/helpers"
)

// Backend is the slice of the API client the handlers consume.
type Backend interface {
	Rate(ctx context.Context, fromCurrency, toCurrency string) (client.Rate, error)
	AllRates(ctx context.Context) ([]client.Rate, error)
	CreateOrder(ctx context.Context, req client.CreateOrderRequest) (client.Order, error)
	Order(ctx context.Context, orderID string) (client.Order, error)
	Orders(ctx context.Context, tgUserID int64, limit, offset int) ([]client.Order, error)
	CancelOrder(ctx context.Context, orderID string) (client.Order, error)
	Stats(ctx context.Context) (client.Stats, error)
	PendingOrders(ctx context.Context) ([]client.Order, error)
}

// Deps carries everything the handlers need.
type Deps struct {
	API      Backend
	Sessions *session.Store
	Limiter  *ratelimit.Limiter
	Watcher  *watch.Watcher

	// Ctx bounds background order watches to the process lifetime.
	Ctx context.Context

	AdminIDs []int64
}

// Handlers binds the bridge bot behaviour to its dependencies.
type Handlers struct {
	api      Backend
	sessions *session.Store
	limiter  *ratelimit.Limiter
	watcher  *watch.Watcher
	ctx      context.Context
	adminIDs []int64
}

// New builds the handler set.
func New(deps Deps) *Handlers {
	ctx := deps.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return &Handlers{
		api:      deps.API,
		sessions: deps.Sessions,
		limiter:  deps.Limiter,
		watcher:  deps.Watcher,
		ctx:      ctx,
		adminIDs: deps.AdminIDs,
	}
}

// Register wires every command and callback into the registry.
func (h *Handlers) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.serialized(h.Start),
		Description: "Main menu",
	})
	reg.RegisterCommand("/bridge", commands.Command{
		Handler:     h.serialized(h.BridgeStart),
		Description: "Start a new swap",
	})
	reg.RegisterCommand("/rate", commands.Command{
		Handler:     h.Rates,
		Description: "Current exchange rates",
		Aliases:     []string{"rates"},
	})
	reg.RegisterCommand("/status", commands.Command{
		Handler:     h.Status,
		Description: "Check order status",
	})
	reg.RegisterCommand("/history", commands.Command{
		Handler:     h.History,
		Description: "Your last 10 orders",
	})
	reg.RegisterCommand("/settings", commands.Command{
		Handler:     h.serialized(h.Settings),
		Description: "Adjust slippage tolerance",
	})
	reg.RegisterCommand("/admin", commands.Command{
		Handler:     h.Admin,
		Description: "Admin dashboard",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     h.Help,
		Description: "Help and FAQ",
	})

	cbs := map[string]tele.HandlerFunc{
		keyboards.CBMenuStart:        h.serialized(h.Start),
		keyboards.CBMenuBridge:       h.serialized(h.BridgeStart),
		keyboards.CBMenuBridgeCancel: h.serialized(h.BridgeCancel),
		keyboards.CBMenuRates:        h.Rates,
		keyboards.CBMenuHistory:      h.History,
		keyboards.CBMenuSettings:     h.serialized(h.Settings),
		keyboards.CBMenuHelp:         h.Help,
		keyboards.CBDirection:        h.serialized(h.DirectionChosen),
		keyboards.CBChain:            h.serialized(h.ChainChosen),
		keyboards.CBAmount:           h.serialized(h.AmountChosen),
		keyboards.CBConfirmBridge:    h.serialized(h.ConfirmOrder),
		keyboards.CBCancelBridge:     h.serialized(h.BridgeCancel),
		keyboards.CBSlippage:         h.serialized(h.SlippageChosen),
		keyboards.CBOrderRefresh:     h.OrderRefresh,
		keyboards.CBOrderCancel:      h.OrderCancel,
		keyboards.CBHistoryDetail:    h.HistoryDetail,
	}
	for key, fn := range cbs {
		_ = reg.RegisterCallback(key, fn)
	}
}

// InProgress reports whether the sender has an active bridge flow. Together
// with ManagerHandler it satisfies the text router's FSM contract.
func (h *Handlers) InProgress(userID int64) bool {
	return h.sessions.InProgress(userID)
}

// ManagerHandler consumes free-form text while a bridge flow is active.
func (h *Handlers) ManagerHandler(c tele.Context) error {
	return h.serialized(h.flowText)(c)
}

// serialized wraps a handler with the per-user lock so no two updates from the
// same user mutate the session concurrently.
func (h *Handlers) serialized(fn tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		user := c.Sender()
		if user == nil {
			return nil
		}
		release := h.sessions.Serialize(user.ID)
		defer release()
		return fn(c)
	}
}

func (h *Handlers) reqCtx(c tele.Context) context.Context {
	return helpers.BuildContext(c)
}
