package quote

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormattedSummary holds the display-ready totals for a comparison.
type FormattedSummary struct {
	TotalItems int    `json:"totalItems"`
	Subtotal   string `json:"subtotal"`
	Shipping   string `json:"shipping"`
	Tax        string `json:"tax"`
	Total      string `json:"total"`
	Savings    string `json:"savings"`
}

// FormattedItem is one display-ready line entry.
type FormattedItem struct {
	ProductID    string `json:"productId"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unitPrice"`
	Discount     string `json:"discount"`
	Subtotal     string `json:"subtotal"`
	AppliedTier  string `json:"appliedTier"`
	DeliveryDays int    `json:"deliveryDays,omitempty"`
}

// FormattedComparison is the display projection of a ComparisonResult.
type FormattedComparison struct {
	Summary FormattedSummary `json:"summary"`
	Items   []FormattedItem  `json:"items"`
}

// FormatMoney renders a monetary amount with the local currency prefix and
// two decimal places. Rounding happens only here, never mid-calculation.
func FormatMoney(v decimal.Decimal) string {
	return "R$ " + v.StringFixed(2)
}

// FormatDiscount renders a discount fraction as a one-decimal percentage.
func FormatDiscount(v decimal.Decimal) string {
	return v.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

// TierLabel renders a tier's quantity range for display.
func TierLabel(t *Tier) string {
	if t == nil {
		return "No tier applied"
	}
	if t.MaxQuantity == nil {
		return fmt.Sprintf("%d+ units", t.MinQuantity)
	}
	return fmt.Sprintf("%d-%d units", t.MinQuantity, *t.MaxQuantity)
}

// FormatComparison projects a comparison into display strings. The input is
// not mutated, so the numeric result stays available for further checks.
func FormatComparison(calc ComparisonResult) FormattedComparison {
	out := FormattedComparison{
		Summary: FormattedSummary{
			TotalItems: len(calc.Items),
			Subtotal:   FormatMoney(calc.TotalSubtotal),
			Shipping:   FormatMoney(calc.TotalShipping),
			Tax:        FormatMoney(calc.TotalTax),
			Total:      FormatMoney(calc.GrandTotal),
			Savings:    FormatMoney(calc.TotalSavings),
		},
		Items: make([]FormattedItem, 0, len(calc.Items)),
	}
	for _, item := range calc.Items {
		out.Items = append(out.Items, FormattedItem{
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			UnitPrice:    FormatMoney(item.UnitPriceAfterDiscount),
			Discount:     FormatDiscount(item.TierDiscount),
			Subtotal:     FormatMoney(item.Subtotal),
			AppliedTier:  TierLabel(item.AppliedTier),
			DeliveryDays: item.DeliveryDays,
		})
	}
	return out
}
