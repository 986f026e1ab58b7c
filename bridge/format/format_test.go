package format

import (
	"strings"
	"testing"

	"github.com/avelune/xmrbridge/bridge/client"
)

func TestTruncateAddress(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "N/A"},
		{"short", "short"},
		{"exactly13chrs", "exactly13chrs"},
		{"4Ab3deFGHIjklmnopqxyz9", "4Ab3de...xyz9"},
	}
	for _, tc := range cases {
		if got := TruncateAddress(tc.in); got != tc.want {
			t.Errorf("TruncateAddress(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAmountDecimals(t *testing.T) {
	if got := Amount(1.5, "XMR"); got != "1.500000 XMR" {
		t.Errorf("XMR amount = %q", got)
	}
	if got := Amount(1.5, "USDT"); got != "1.50 USDT" {
		t.Errorf("USDT amount = %q", got)
	}
	if got := Amount(0, "TON"); got != "0.000000 TON" {
		t.Errorf("zero amount = %q", got)
	}
}

func TestStatusLabel(t *testing.T) {
	if got := StatusLabel("awaiting_deposit"); got != "Awaiting Deposit" {
		t.Errorf("label = %q", got)
	}
	if got := StatusLabel("pending"); got != "Pending" {
		t.Errorf("label = %q", got)
	}
}

func TestProgressBarCurrentStage(t *testing.T) {
	bar := ProgressBar(client.StatusConfirming)
	parts := strings.Split(bar, " ")
	if len(parts) != len(client.ProgressStages) {
		t.Fatalf("bar has %d parts, want %d", len(parts), len(client.ProgressStages))
	}
	if parts[0] != "✅" || parts[1] != "✅" {
		t.Errorf("stages before current should be checked: %v", parts)
	}
	if parts[2] != "\U0001f7e2" {
		t.Errorf("current stage should be green: %v", parts)
	}
	if parts[3] != "⚪" {
		t.Errorf("later stages should be open: %v", parts)
	}
}

func TestProgressBarUnknownStatus(t *testing.T) {
	bar := ProgressBar(client.StatusFailed)
	if strings.Contains(bar, "✅") || strings.Contains(bar, "\U0001f7e2") {
		t.Errorf("failed order should show no progress: %q", bar)
	}
}

func TestOrderSummaryEscapesUserInput(t *testing.T) {
	out := OrderSummary(client.Order{
		ID:                 "ord-1",
		Status:             client.StatusAwaitingDeposit,
		FromCurrency:       "XMR",
		ToCurrency:         "TON",
		AmountIn:           1.5,
		AmountOut:          78.2,
		DestinationAddress: "<script>alert(1)</script>",
	})
	if strings.Contains(out, "<script>") {
		t.Fatal("destination address not escaped")
	}
	if !strings.Contains(out, "<b>Status:</b> Awaiting Deposit") {
		t.Errorf("missing status line:\n%s", out)
	}
	if !strings.Contains(out, "1.500000 XMR") {
		t.Errorf("missing amount in:\n%s", out)
	}
}

func TestRateLine(t *testing.T) {
	up := 2.1
	line := RateLine(client.Rate{FromCurrency: "XMR", ToCurrency: "TON", Rate: 52.35, Change24h: &up})
	if !strings.Contains(line, "1 XMR") || !strings.Contains(line, "52.350000 TON") {
		t.Errorf("line = %q", line)
	}
	if !strings.Contains(line, "+2.10%") {
		t.Errorf("missing change: %q", line)
	}

	down := -1.0
	line = RateLine(client.Rate{FromCurrency: "XMR", ToCurrency: "BTC", Rate: 0.0075, Change24h: &down})
	if !strings.Contains(line, "-1.00%") {
		t.Errorf("missing negative change: %q", line)
	}

	line = RateLine(client.Rate{FromCurrency: "XMR", ToCurrency: "ETH", Rate: 1})
	if strings.Contains(line, "%") {
		t.Errorf("no change expected: %q", line)
	}
}
