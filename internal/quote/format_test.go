package quote

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1280", "R$ 1280.00"},
		{"646.25", "R$ 646.25"},
		{"0", "R$ 0.00"},
		{"19.999", "R$ 20.00"},
	}
	for _, tc := range cases {
		v, err := decimal.NewFromString(tc.in)
		if err != nil {
			t.Fatal(err)
		}
		if got := FormatMoney(v); got != tc.want {
			t.Fatalf("FormatMoney(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatDiscount(t *testing.T) {
	if got := FormatDiscount(decimal.NewFromFloat(0.05)); got != "5.0%" {
		t.Fatalf("expected 5.0%%, got %q", got)
	}
	if got := FormatDiscount(decimal.Zero); got != "0.0%" {
		t.Fatalf("expected 0.0%%, got %q", got)
	}
	if got := FormatDiscount(decimal.NewFromFloat(0.2)); got != "20.0%" {
		t.Fatalf("expected 20.0%%, got %q", got)
	}
}

func TestTierLabel(t *testing.T) {
	ten := 10
	if got := TierLabel(&Tier{MinQuantity: 1, MaxQuantity: &ten}); got != "1-10 units" {
		t.Fatalf("expected bounded label, got %q", got)
	}
	if got := TierLabel(&Tier{MinQuantity: 501}); got != "501+ units" {
		t.Fatalf("expected open-ended label, got %q", got)
	}
	if got := TierLabel(nil); got != "No tier applied" {
		t.Fatalf("expected nil label, got %q", got)
	}
}

func TestFormatComparisonDoesNotMutate(t *testing.T) {
	calc := ComparisonResult{
		Items: []LineResult{{
			ProductID:              "p1",
			Quantity:               20,
			TierDiscount:           decimal.NewFromFloat(0.05),
			UnitPriceAfterDiscount: decimal.NewFromFloat(95),
			Subtotal:               decimal.NewFromInt(1900),
		}},
		TotalSubtotal: decimal.NewFromInt(1900),
		TotalShipping: decimal.NewFromInt(75),
		TotalTax:      decimal.NewFromInt(342),
		GrandTotal:    decimal.NewFromInt(2317),
		TotalSavings:  decimal.NewFromInt(100),
	}

	first := FormatComparison(calc)
	second := FormatComparison(calc)

	if first.Summary != second.Summary {
		t.Fatal("formatting must be deterministic")
	}
	if first.Summary.Total != "R$ 2317.00" || first.Summary.Savings != "R$ 100.00" {
		t.Fatalf("unexpected summary: %+v", first.Summary)
	}
	if first.Items[0].Discount != "5.0%" || first.Items[0].UnitPrice != "R$ 95.00" {
		t.Fatalf("unexpected item: %+v", first.Items[0])
	}
	if !calc.GrandTotal.Equal(decimal.NewFromInt(2317)) {
		t.Fatal("input comparison must not be mutated")
	}
}
