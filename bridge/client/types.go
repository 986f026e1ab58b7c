package client

// Rate is one entry from GET /api/rates or /api/rates/all.
type Rate struct {
	FromCurrency string   `json:"from_currency"`
	ToCurrency   string   `json:"to_currency"`
	Rate         float64  `json:"rate"`
	FeePct       *float64 `json:"fee_pct,omitempty"`
	Change24h    *float64 `json:"change_24h,omitempty"`
}

// DefaultFeePct applies when the backend omits fee_pct for a pair.
const DefaultFeePct = 0.5

// Fee returns the fee percentage, defaulting when the backend omitted it.
func (r Rate) Fee() float64 {
	if r.FeePct == nil {
		return DefaultFeePct
	}
	return *r.FeePct
}

// Order is the backend's order snapshot. The bot never owns an authoritative
// copy; these are transient read results.
type Order struct {
	ID                 string  `json:"id"`
	Status             string  `json:"status"`
	FromCurrency       string  `json:"from_currency"`
	ToCurrency         string  `json:"to_currency"`
	AmountIn           float64 `json:"amount_in"`
	AmountOut          float64 `json:"amount_out"`
	DepositAddress     string  `json:"deposit_address"`
	DestinationAddress string  `json:"destination_address"`
	Fee                float64 `json:"fee"`
	CreatedAt          string  `json:"created_at"`
}

// Stats aggregates backend counters for the admin dashboard.
type Stats struct {
	TotalOrders     int64   `json:"total_orders"`
	CompletedOrders int64   `json:"completed_orders"`
	PendingOrders   int64   `json:"pending_orders"`
	FailedOrders    int64   `json:"failed_orders"`
	TotalVolumeXMR  float64 `json:"total_volume_xmr"`
	TotalFeesXMR    float64 `json:"total_fees_xmr"`
	UniqueUsers     int64   `json:"unique_users"`
}

// Order status vocabulary. The first six form the ordered progress sequence;
// the rest are non-sequential terminal states.
const (
	StatusPending         = "pending"
	StatusAwaitingDeposit = "awaiting_deposit"
	StatusConfirming      = "confirming"
	StatusExchanging      = "exchanging"
	StatusSending         = "sending"
	StatusCompleted       = "completed"
	StatusFailed          = "failed"
	StatusRefunded        = "refunded"
	StatusExpired         = "expired"
	StatusCancelled       = "cancelled"
)

// ProgressStages orders the happy-path statuses for progress display.
var ProgressStages = []string{
	StatusPending,
	StatusAwaitingDeposit,
	StatusConfirming,
	StatusExchanging,
	StatusSending,
	StatusCompleted,
}

var terminalStatuses = map[string]struct{}{
	StatusCompleted: {},
	StatusFailed:    {},
	StatusRefunded:  {},
	StatusExpired:   {},
	StatusCancelled: {},
}

// IsTerminal reports whether no further status change is expected.
func IsTerminal(status string) bool {
	_, ok := terminalStatuses[status]
	return ok
}
