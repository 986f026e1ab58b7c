package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/avelune/xmrbridge/bridge/client"
	"github.com/avelune/xmrbridge/bridge/ratelimit"
	"github.com/avelune/xmrbridge/bridge/session"
	"github.com/avelune/xmrbridge/bridge/watch"
	"github.com/avelune/xmrbridge/core/logger"
)

func TestMain(m *testing.M) {
	if err := logger.InitLogger(nil); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeCtx implements the slice of tele.Context the handlers touch. Calling
// anything else panics through the embedded nil interface, which is exactly
// what a test should do.
type fakeCtx struct {
	tele.Context
	sender *tele.User
	text   string
	cb     *tele.Callback
	store  map[string]any
	out    []string
}

func newFakeCtx(userID int64) *fakeCtx {
	return &fakeCtx{
		sender: &tele.User{ID: userID},
		store:  map[string]any{},
	}
}

func (f *fakeCtx) Sender() *tele.User      { return f.sender }
func (f *fakeCtx) Chat() *tele.Chat        { return &tele.Chat{ID: f.sender.ID} }
func (f *fakeCtx) Text() string            { return f.text }
func (f *fakeCtx) Callback() *tele.Callback { return f.cb }
func (f *fakeCtx) Update() tele.Update     { return tele.Update{} }
func (f *fakeCtx) Get(key string) any      { return f.store[key] }
func (f *fakeCtx) Set(key string, val any) { f.store[key] = val }

func (f *fakeCtx) Send(what interface{}, _ ...interface{}) error {
	f.out = append(f.out, fmt.Sprint(what))
	return nil
}

func (f *fakeCtx) EditOrSend(what interface{}, _ ...interface{}) error {
	return f.Send(what)
}

func (f *fakeCtx) lastOut() string {
	if len(f.out) == 0 {
		return ""
	}
	return f.out[len(f.out)-1]
}

// command builds a fake command update.
func command(userID int64, text string) *fakeCtx {
	c := newFakeCtx(userID)
	c.text = text
	return c
}

// callback builds a fake callback update with telebot's data encoding.
func callback(userID int64, unique, payload string) *fakeCtx {
	c := newFakeCtx(userID)
	data := "\f" + unique
	if payload != "" {
		data += "|" + payload
	}
	c.cb = &tele.Callback{Data: data}
	return c
}

// message builds a fake free-form text update.
func message(userID int64, text string) *fakeCtx {
	c := newFakeCtx(userID)
	c.text = text
	return c
}

type fakeBackend struct {
	rate      client.Rate
	rateErr   error
	allRates  []client.Rate
	allErr    error
	created   []client.CreateOrderRequest
	createRes client.Order
	createErr error
	orders    map[string]client.Order
	orderErr  error
	list      []client.Order
	listErr   error
	cancelRes client.Order
	cancelErr error
	stats     client.Stats
	statsErr  error
	pending   []client.Order
	pendErr   error
}

func (b *fakeBackend) Rate(context.Context, string, string) (client.Rate, error) {
	return b.rate, b.rateErr
}

func (b *fakeBackend) AllRates(context.Context) ([]client.Rate, error) {
	return b.allRates, b.allErr
}

func (b *fakeBackend) CreateOrder(_ context.Context, req client.CreateOrderRequest) (client.Order, error) {
	b.created = append(b.created, req)
	return b.createRes, b.createErr
}

func (b *fakeBackend) Order(_ context.Context, id string) (client.Order, error) {
	if b.orderErr != nil {
		return client.Order{}, b.orderErr
	}
	if o, ok := b.orders[id]; ok {
		return o, nil
	}
	return client.Order{}, &client.APIError{Status: 404, Detail: "order not found"}
}

func (b *fakeBackend) Orders(context.Context, int64, int, int) ([]client.Order, error) {
	return b.list, b.listErr
}

func (b *fakeBackend) CancelOrder(context.Context, string) (client.Order, error) {
	return b.cancelRes, b.cancelErr
}

func (b *fakeBackend) Stats(context.Context) (client.Stats, error) {
	return b.stats, b.statsErr
}

func (b *fakeBackend) PendingOrders(context.Context) ([]client.Order, error) {
	return b.pending, b.pendErr
}

type silentNotifier struct{}

func (silentNotifier) StatusChanged(int64, client.Order, string) {}
func (silentNotifier) WatchExpired(int64, client.Order)          {}

func newTestHandlers(api *fakeBackend, limiter *ratelimit.Limiter) (*Handlers, *session.Store, *watch.Watcher) {
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.Options{})
	}
	sessions := session.NewStore()
	watcher := watch.New(api, silentNotifier{}, watch.Options{Interval: time.Millisecond, MaxPolls: 1})
	h := New(Deps{
		API:      api,
		Sessions: sessions,
		Limiter:  limiter,
		Watcher:  watcher,
		Ctx:      context.Background(),
	})
	return h, sessions, watcher
}

func runFlowToConfirm(t *testing.T, h *Handlers, userID int64) {
	t.Helper()
	if err := h.BridgeStart(command(userID, "/bridge")); err != nil {
		t.Fatalf("BridgeStart: %v", err)
	}
	if err := h.DirectionChosen(callback(userID, "dir_type", "from_xmr")); err != nil {
		t.Fatalf("DirectionChosen: %v", err)
	}
	if err := h.ChainChosen(callback(userID, "chain", "from_xmr|TON")); err != nil {
		t.Fatalf("ChainChosen: %v", err)
	}
	if err := h.AmountChosen(callback(userID, "amount", "1.0")); err != nil {
		t.Fatalf("AmountChosen: %v", err)
	}
	if err := h.ManagerHandler(message(userID, "UQabcdef1234567890")); err != nil {
		t.Fatalf("address input: %v", err)
	}
}

func TestBridgeFlowHappyPath(t *testing.T) {
	api := &fakeBackend{
		rate:      client.Rate{FromCurrency: "XMR", ToCurrency: "TON", Rate: 52.0},
		createRes: client.Order{ID: "ord-1", Status: client.StatusPending, DepositAddress: "4Adeposit"},
		orders:    map[string]client.Order{"ord-1": {ID: "ord-1", Status: client.StatusCompleted}},
	}
	limiter := ratelimit.New(ratelimit.Options{OrderLimit: 1})
	h, sessions, watcher := newTestHandlers(api, limiter)

	runFlowToConfirm(t, h, 1)
	if got := sessions.State(1); got != session.StateConfirming {
		t.Fatalf("state before confirm = %s", got)
	}

	c := callback(1, "confirm_bridge", "")
	if err := h.ConfirmOrder(c); err != nil {
		t.Fatalf("ConfirmOrder: %v", err)
	}

	if len(api.created) != 1 {
		t.Fatalf("created %d orders", len(api.created))
	}
	req := api.created[0]
	if req.TGUserID != 1 || req.FromCurrency != "XMR" || req.ToCurrency != "TON" ||
		req.Amount != 1.0 || req.DestinationAddress != "UQabcdef1234567890" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Slippage != session.DefaultSlippage {
		t.Fatalf("slippage = %v", req.Slippage)
	}

	if !strings.Contains(c.lastOut(), "4Adeposit") {
		t.Fatalf("confirmation missing deposit address:\n%s", c.lastOut())
	}
	if sessions.State(1) != session.StateIdle {
		t.Fatalf("session not reset after order")
	}
	if limiter.CanCreateOrder(1) {
		t.Fatal("quota not consumed after successful order")
	}
	watcher.Wait()
}

func TestConfirmQuotaExceeded(t *testing.T) {
	api := &fakeBackend{rate: client.Rate{Rate: 52.0}}
	limiter := ratelimit.New(ratelimit.Options{OrderLimit: 1})
	limiter.RecordOrder(1)
	h, sessions, _ := newTestHandlers(api, limiter)

	runFlowToConfirm(t, h, 1)
	c := callback(1, "confirm_bridge", "")
	if err := h.ConfirmOrder(c); err != nil {
		t.Fatalf("ConfirmOrder: %v", err)
	}

	if len(api.created) != 0 {
		t.Fatal("backend called despite exhausted quota")
	}
	if !strings.Contains(c.lastOut(), "1 orders per hour") {
		t.Fatalf("missing quota notice: %s", c.lastOut())
	}
	// The user keeps the filled-in flow and can confirm later.
	if sessions.State(1) != session.StateConfirming {
		t.Fatalf("state = %s", sessions.State(1))
	}
}

func TestConfirmBackendRejection(t *testing.T) {
	api := &fakeBackend{
		rate:      client.Rate{Rate: 52.0},
		createErr: &client.APIError{Status: 422, Detail: "amount below minimum"},
	}
	limiter := ratelimit.New(ratelimit.Options{OrderLimit: 1})
	h, sessions, _ := newTestHandlers(api, limiter)

	runFlowToConfirm(t, h, 1)
	c := callback(1, "confirm_bridge", "")
	if err := h.ConfirmOrder(c); err != nil {
		t.Fatalf("ConfirmOrder: %v", err)
	}

	if !strings.Contains(c.lastOut(), "amount below minimum") {
		t.Fatalf("missing backend detail: %s", c.lastOut())
	}
	if sessions.State(1) != session.StateIdle {
		t.Fatal("session must reset after failed creation")
	}
	if !limiter.CanCreateOrder(1) {
		t.Fatal("failed creation must not consume quota")
	}
}

func TestConfirmWithoutFlow(t *testing.T) {
	api := &fakeBackend{}
	h, _, _ := newTestHandlers(api, nil)

	c := callback(1, "confirm_bridge", "")
	if err := h.ConfirmOrder(c); err != nil {
		t.Fatalf("ConfirmOrder: %v", err)
	}
	if len(api.created) != 0 {
		t.Fatal("order created without a confirmed flow")
	}
}

func TestAmountValidation(t *testing.T) {
	api := &fakeBackend{rate: client.Rate{Rate: 52.0}}
	h, sessions, _ := newTestHandlers(api, nil)

	_ = h.BridgeStart(command(1, "/bridge"))
	_ = h.DirectionChosen(callback(1, "dir_type", "from_xmr"))
	_ = h.ChainChosen(callback(1, "chain", "from_xmr|TON"))

	// ParseFloat accepts NaN and infinities, so those must be rejected by the
	// positivity check itself.
	for _, bad := range []string{"abc", "-5", "0", "NaN", "nan", "Inf", "+Inf", "-Inf"} {
		c := message(1, bad)
		if err := h.ManagerHandler(c); err != nil {
			t.Fatalf("ManagerHandler(%q): %v", bad, err)
		}
		if !strings.Contains(c.lastOut(), "valid positive number") {
			t.Fatalf("no rejection for %q: %s", bad, c.lastOut())
		}
		if sessions.State(1) != session.StateEnteringAmount {
			t.Fatalf("state moved on invalid amount %q", bad)
		}
	}

	// The preset callback path is forgeable and gets the same guard.
	for _, bad := range []string{"NaN", "Inf", "-1"} {
		c := callback(1, "amount", bad)
		if err := h.AmountChosen(c); err != nil {
			t.Fatalf("AmountChosen(%q): %v", bad, err)
		}
		if !strings.Contains(c.lastOut(), "Invalid amount") {
			t.Fatalf("no rejection for preset %q: %s", bad, c.lastOut())
		}
		if sessions.State(1) != session.StateEnteringAmount {
			t.Fatalf("state moved on invalid preset %q", bad)
		}
	}
}

func TestChainChosenRejectsUnknownSymbol(t *testing.T) {
	api := &fakeBackend{rate: client.Rate{Rate: 52.0}}
	h, sessions, _ := newTestHandlers(api, nil)

	_ = h.BridgeStart(command(1, "/bridge"))
	_ = h.DirectionChosen(callback(1, "dir_type", "from_xmr"))

	c := callback(1, "chain", "from_xmr|DOGE")
	if err := h.ChainChosen(c); err != nil {
		t.Fatalf("ChainChosen: %v", err)
	}
	if !strings.Contains(c.lastOut(), "Unknown chain") {
		t.Fatalf("forged chain accepted: %s", c.lastOut())
	}
	if sessions.State(1) != session.StateChoosingChain {
		t.Fatal("state moved on forged chain")
	}
	if sess := sessions.Get(1); sess.FromCurrency != "" || sess.ToCurrency != "" {
		t.Fatalf("pair set from forged chain: %s/%s", sess.FromCurrency, sess.ToCurrency)
	}
}

func TestAddressValidation(t *testing.T) {
	api := &fakeBackend{rate: client.Rate{Rate: 52.0}}
	h, sessions, _ := newTestHandlers(api, nil)

	_ = h.BridgeStart(command(1, "/bridge"))
	_ = h.DirectionChosen(callback(1, "dir_type", "to_xmr"))
	_ = h.ChainChosen(callback(1, "chain", "to_xmr|BTC"))
	_ = h.AmountChosen(callback(1, "amount", "0.5"))

	c := message(1, "short")
	if err := h.ManagerHandler(c); err != nil {
		t.Fatalf("ManagerHandler: %v", err)
	}
	if !strings.Contains(c.lastOut(), "valid address") {
		t.Fatalf("no rejection: %s", c.lastOut())
	}
	if sessions.State(1) != session.StateEnteringAddress {
		t.Fatal("state moved on invalid address")
	}

	// Direction to_xmr flips the pair.
	_ = h.ManagerHandler(message(1, "bc1qlongenoughaddress"))
	sess := sessions.Get(1)
	if sess.FromCurrency != "BTC" || sess.ToCurrency != "XMR" {
		t.Fatalf("pair = %s -> %s", sess.FromCurrency, sess.ToCurrency)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	api := &fakeBackend{rate: client.Rate{Rate: 52.0}}
	h, sessions, _ := newTestHandlers(api, nil)

	runFlowToConfirm(t, h, 1)
	for i := 0; i < 2; i++ {
		if err := h.BridgeCancel(callback(1, "cancel_bridge", "")); err != nil {
			t.Fatalf("BridgeCancel #%d: %v", i+1, err)
		}
		if sessions.State(1) != session.StateIdle {
			t.Fatalf("state after cancel = %s", sessions.State(1))
		}
	}
}

func TestRestartDiscardsProgress(t *testing.T) {
	api := &fakeBackend{rate: client.Rate{Rate: 52.0}}
	h, sessions, _ := newTestHandlers(api, nil)

	runFlowToConfirm(t, h, 1)
	if err := h.BridgeStart(command(1, "/bridge")); err != nil {
		t.Fatalf("BridgeStart: %v", err)
	}
	sess := sessions.Get(1)
	if sess.State != session.StateChoosingDirection {
		t.Fatalf("state = %s", sess.State)
	}
	if sess.Amount != 0 || sess.DestinationAddress != "" {
		t.Fatalf("stale flow data: %+v", sess)
	}
}

func TestSlippageChoiceAppliedToOrder(t *testing.T) {
	api := &fakeBackend{
		rate:      client.Rate{Rate: 52.0},
		createRes: client.Order{ID: "ord-2", Status: client.StatusPending},
		orders:    map[string]client.Order{"ord-2": {ID: "ord-2", Status: client.StatusCompleted}},
	}
	h, _, watcher := newTestHandlers(api, nil)

	if err := h.SlippageChosen(callback(1, "slippage", "1")); err != nil {
		t.Fatalf("SlippageChosen: %v", err)
	}
	runFlowToConfirm(t, h, 1)
	if err := h.ConfirmOrder(callback(1, "confirm_bridge", "")); err != nil {
		t.Fatalf("ConfirmOrder: %v", err)
	}

	if len(api.created) != 1 || api.created[0].Slippage != 1.0 {
		t.Fatalf("slippage not applied: %+v", api.created)
	}
	watcher.Wait()
}

func TestSlippageRejectsUnknownValue(t *testing.T) {
	api := &fakeBackend{}
	h, sessions, _ := newTestHandlers(api, nil)

	c := callback(1, "slippage", "42")
	if err := h.SlippageChosen(c); err != nil {
		t.Fatalf("SlippageChosen: %v", err)
	}
	if !strings.Contains(c.lastOut(), "Invalid slippage") {
		t.Fatalf("missing rejection: %s", c.lastOut())
	}
	if got := sessions.Slippage(1); got != session.DefaultSlippage {
		t.Fatalf("slippage changed to %v", got)
	}
}

func TestStatusCommand(t *testing.T) {
	api := &fakeBackend{orders: map[string]client.Order{
		"ord-1": {ID: "ord-1", Status: client.StatusConfirming, FromCurrency: "XMR", ToCurrency: "TON"},
	}}
	h, _, _ := newTestHandlers(api, nil)

	c := command(1, "/status")
	if err := h.Status(c); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !strings.Contains(c.lastOut(), "Usage") {
		t.Fatalf("missing usage hint: %s", c.lastOut())
	}

	c = command(1, "/status ord-1")
	if err := h.Status(c); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !strings.Contains(c.lastOut(), "Confirming") {
		t.Fatalf("missing status: %s", c.lastOut())
	}

	c = command(1, "/status nope")
	if err := h.Status(c); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !strings.Contains(c.lastOut(), "not found") {
		t.Fatalf("missing not-found notice: %s", c.lastOut())
	}
}

func TestRatesFallbackPerPair(t *testing.T) {
	api := &fakeBackend{
		allErr: &client.APIError{Status: 500, Detail: "boom"},
		rate:   client.Rate{FromCurrency: "XMR", ToCurrency: "TON", Rate: 52.35},
	}
	h, _, _ := newTestHandlers(api, nil)

	c := callback(1, "menu_rates", "")
	if err := h.Rates(c); err != nil {
		t.Fatalf("Rates: %v", err)
	}
	if !strings.Contains(c.lastOut(), "52.350000") {
		t.Fatalf("fallback rates missing: %s", c.lastOut())
	}
}

func TestHistoryEmpty(t *testing.T) {
	api := &fakeBackend{}
	h, _, _ := newTestHandlers(api, nil)

	c := command(1, "/history")
	if err := h.History(c); err != nil {
		t.Fatalf("History: %v", err)
	}
	if !strings.Contains(c.lastOut(), "no orders yet") {
		t.Fatalf("missing empty notice: %s", c.lastOut())
	}
}

func TestAdminSectionsDegradeIndependently(t *testing.T) {
	api := &fakeBackend{
		statsErr: &client.APIError{Status: 500, Detail: "down"},
		pending:  []client.Order{{ID: "ord-1", Status: client.StatusPending, FromCurrency: "XMR", ToCurrency: "TON", AmountIn: 1}},
	}
	h, _, _ := newTestHandlers(api, nil)

	c := command(1, "/admin")
	if err := h.Admin(c); err != nil {
		t.Fatalf("Admin: %v", err)
	}
	out := c.lastOut()
	if !strings.Contains(out, "Could not fetch stats") {
		t.Fatalf("missing stats degradation: %s", out)
	}
	if !strings.Contains(out, "Pending Orders (1)") {
		t.Fatalf("pending section missing: %s", out)
	}
}

func TestStartShowsStats(t *testing.T) {
	api := &fakeBackend{list: []client.Order{
		{ID: "a", Status: client.StatusCompleted, AmountIn: 1.5},
		{ID: "b", Status: client.StatusPending, AmountIn: 2},
	}}
	h, _, _ := newTestHandlers(api, nil)

	c := command(1, "/start")
	if err := h.Start(c); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out := c.lastOut()
	if !strings.Contains(out, "2 total, 1 completed") {
		t.Fatalf("missing stats: %s", out)
	}
	if !strings.Contains(out, "1.500000 XMR") {
		t.Fatalf("missing volume: %s", out)
	}
}
