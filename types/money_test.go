package types_test

import (
	"encoding/json"
	"testing"

	"github.com/fundrail/ledger/types"
)

func TestMoneyArithmetic(t *testing.T) {
	a := types.USD(1000)
	b := types.USD(250)

	if got := a.Add(b); got.Amount != 1250 {
		t.Errorf("Add: expected 1250, got %d", got.Amount)
	}
	if got := a.Subtract(b); got.Amount != 750 {
		t.Errorf("Subtract: expected 750, got %d", got.Amount)
	}
	if got := b.Subtract(a); got.Amount != -750 {
		t.Errorf("Subtract: expected -750, got %d", got.Amount)
	}
	if got := a.Negate(); got.Amount != -1000 {
		t.Errorf("Negate: expected -1000, got %d", got.Amount)
	}
}

func TestMoneyMulBps(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		bps    int64
		want   int64
	}{
		{"ten percent", 20000, 1000, 2000},
		{"full", 20000, 10000, 20000},
		{"truncates toward zero", 199, 1000, 19},
		{"negative base truncates toward zero", -199, 1000, -19},
		{"negative profit", -5000, 1000, -500},
		{"zero bps", 20000, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := types.USD(tt.amount).MulBps(tt.bps)
			if got.Amount != tt.want {
				t.Errorf("MulBps(%d, %d) = %d, want %d", tt.amount, tt.bps, got.Amount, tt.want)
			}
		})
	}
}

func TestMoneyCurrencyMismatchPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on currency mismatch")
		}
	}()
	types.USD(100).Add(types.EUR(100))
}

func TestMoneyComparisons(t *testing.T) {
	a := types.USD(100)
	b := types.USD(200)

	if !a.LessThan(b) {
		t.Error("expected 100 < 200")
	}
	if !b.GreaterThan(a) {
		t.Error("expected 200 > 100")
	}
	if !types.Zero("usd").IsZero() {
		t.Error("expected zero to be zero")
	}
	if !a.IsPositive() {
		t.Error("expected 100 to be positive")
	}
	if !a.Negate().IsNegative() {
		t.Error("expected -100 to be negative")
	}
	if !a.Equal(types.USD(100)) {
		t.Error("expected equal values to compare equal")
	}
	if a.Equal(types.EUR(100)) {
		t.Error("different currencies must not compare equal")
	}
}

func TestMoneyFormat(t *testing.T) {
	tests := []struct {
		name  string
		money types.Money
		want  string
	}{
		{"dollars", types.USD(250000), "2500.00"},
		{"negative", types.USD(-1050), "-10.50"},
		{"pence", types.GBP(99), "0.99"},
		{"zero decimal", types.New(100, "jpy"), "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.want {
				t.Errorf("FormatMajor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	original := types.USD(123456)
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var restored types.Money
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !restored.Equal(original) {
		t.Errorf("round-trip mismatch: %+v != %+v", restored, original)
	}
}

func TestSum(t *testing.T) {
	got := types.Sum(types.USD(100), types.USD(200), types.USD(-50))
	if got.Amount != 250 {
		t.Errorf("Sum = %d, want 250", got.Amount)
	}
}
