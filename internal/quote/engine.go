package quote

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnknownShippingMethod is returned when a shipping method is outside the rate table.
	ErrUnknownShippingMethod = errors.New("quote: unknown shipping method")
	// ErrBelowMinimumOrder is returned when a quantity does not meet the product's minimum order.
	ErrBelowMinimumOrder = errors.New("quote: quantity below minimum order")
)

// ProductInfo is the slice of a product record the engine needs.
type ProductInfo struct {
	Price       decimal.Decimal
	MinOrderQty int
}

// ProductLookup resolves product pricing data by identifier. A missing
// product must surface as an error; the engine never substitutes a default
// price.
type ProductLookup interface {
	Resolve(ctx context.Context, productID string) (ProductInfo, error)
}

// LineRequest is one (product, quantity) pair to be priced.
type LineRequest struct {
	ProductID string
	Quantity  int
}

// Options carries the shared routing context for a comparison.
type Options struct {
	BuyerLocation    string
	SupplierLocation string
	Method           ShippingMethod
}

// LineResult is the itemised price breakdown for a single line.
type LineResult struct {
	ProductID              string          `json:"productId"`
	BasePrice              decimal.Decimal `json:"basePrice"`
	Quantity               int             `json:"quantity"`
	TierDiscount           decimal.Decimal `json:"tierDiscount"`
	UnitPriceAfterDiscount decimal.Decimal `json:"unitPriceAfterDiscount"`
	Subtotal               decimal.Decimal `json:"subtotal"`
	ShippingCost           decimal.Decimal `json:"shippingCost"`
	Tax                    decimal.Decimal `json:"tax"`
	Total                  decimal.Decimal `json:"total"`
	Savings                decimal.Decimal `json:"savings"`
	AppliedTier            *Tier           `json:"appliedTier"`
	DeliveryDays           int             `json:"deliveryDays,omitempty"`
}

// ComparisonResult aggregates line breakdowns across a request.
type ComparisonResult struct {
	Items         []LineResult    `json:"items"`
	TotalSubtotal decimal.Decimal `json:"totalSubtotal"`
	TotalShipping decimal.Decimal `json:"totalShipping"`
	TotalTax      decimal.Decimal `json:"totalTax"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
	TotalSavings  decimal.Decimal `json:"totalSavings"`
}

// Engine computes deterministic price breakdowns from fixed policy tables.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	lookup ProductLookup
	policy Policy
}

// NewEngine constructs an Engine. A zero policy falls back to the defaults.
func NewEngine(lookup ProductLookup, policy Policy) (*Engine, error) {
	if lookup == nil {
		return nil, errors.New("quote: product lookup is required")
	}
	if len(policy.Tiers) == 0 {
		policy = DefaultPolicy()
	}
	return &Engine{lookup: lookup, policy: policy}, nil
}

// Policy exposes the engine's pricing tables.
func (e *Engine) Policy() Policy { return e.policy }

// SelectTier returns the first tier whose quantity range contains the
// requested quantity, or nil when none matches. A nil tier means "no
// discount", not an error; callers treat it as a zero discount.
func SelectTier(quantity int, tiers []Tier) *Tier {
	for i := range tiers {
		t := &tiers[i]
		if quantity >= t.MinQuantity && (t.MaxQuantity == nil || quantity <= *t.MaxQuantity) {
			return t
		}
	}
	return nil
}

// ShippingCost estimates freight for a quantity over a distance. The
// distance multiplier is floored at 1, so the result never drops below the
// method's base rate.
func (e *Engine) ShippingCost(quantity int, method ShippingMethod, distanceKm int) (decimal.Decimal, error) {
	rate, ok := e.policy.Rates[method]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownShippingMethod, method)
	}
	weight := decimal.NewFromInt(int64(quantity)).Mul(e.policy.UnitWeightKg)
	multiplier := decimal.NewFromInt(int64(distanceKm)).Div(decimal.NewFromInt(100))
	if multiplier.LessThan(decimal.NewFromInt(1)) {
		multiplier = decimal.NewFromInt(1)
	}
	return rate.BaseRate.Add(weight.Mul(rate.PerKgRate)).Mul(multiplier), nil
}

// Distance looks up the kilometre distance between two cities. The table is
// symmetric; unknown pairs and missing arguments fall back to the default.
func (e *Engine) Distance(origin, destination string) int {
	if origin == "" || destination == "" {
		return e.policy.DefaultDistanceKm
	}
	if row, ok := e.policy.Distances[origin]; ok {
		if km, ok := row[destination]; ok {
			return km
		}
	}
	return e.policy.DefaultDistanceKm
}

// PriceLine resolves the product and computes the full breakdown for one
// line. Lookup failures propagate unchanged.
func (e *Engine) PriceLine(ctx context.Context, req LineRequest, opts Options) (LineResult, error) {
	info, err := e.lookup.Resolve(ctx, req.ProductID)
	if err != nil {
		return LineResult{}, err
	}
	if info.MinOrderQty > 0 && req.Quantity < info.MinOrderQty {
		return LineResult{}, fmt.Errorf("%w: minimum order quantity is %d units", ErrBelowMinimumOrder, info.MinOrderQty)
	}

	method := opts.Method
	if method == "" {
		method = MethodStandard
	}

	qty := decimal.NewFromInt(int64(req.Quantity))
	tier := SelectTier(req.Quantity, e.policy.Tiers)
	discount := decimal.Zero
	if tier != nil {
		discount = tier.Discount
	}
	unitPrice := info.Price.Mul(decimal.NewFromInt(1).Sub(discount))
	subtotal := unitPrice.Mul(qty)

	distance := e.Distance(opts.BuyerLocation, opts.SupplierLocation)
	shipping, err := e.ShippingCost(req.Quantity, method, distance)
	if err != nil {
		return LineResult{}, err
	}

	tax := subtotal.Mul(e.policy.TaxRate)
	total := subtotal.Add(shipping).Add(tax)
	savings := info.Price.Mul(qty).Sub(subtotal)

	days := 0
	if rate, ok := e.policy.Rates[method]; ok {
		days = rate.DeliveryDays
	}

	return LineResult{
		ProductID:              req.ProductID,
		BasePrice:              info.Price,
		Quantity:               req.Quantity,
		TierDiscount:           discount,
		UnitPriceAfterDiscount: unitPrice,
		Subtotal:               subtotal,
		ShippingCost:           shipping,
		Tax:                    tax,
		Total:                  total,
		Savings:                savings,
		AppliedTier:            tier,
		DeliveryDays:           days,
	}, nil
}

// PriceComparison prices every line and sums the aggregates. Lines are
// computed concurrently; result order follows input order. Any line failure
// fails the whole comparison so callers never see partial pricing.
func (e *Engine) PriceComparison(ctx context.Context, lines []LineRequest, opts Options) (ComparisonResult, error) {
	if opts.Method != "" {
		if _, ok := e.policy.Rates[opts.Method]; !ok {
			return ComparisonResult{}, fmt.Errorf("%w: %q", ErrUnknownShippingMethod, opts.Method)
		}
	}

	items := make([]LineResult, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	for i, line := range lines {
		i, line := i, line
		g.Go(func() error {
			result, err := e.PriceLine(gctx, line, opts)
			if err != nil {
				return err
			}
			items[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ComparisonResult{}, err
	}

	out := ComparisonResult{
		Items:         items,
		TotalSubtotal: decimal.Zero,
		TotalShipping: decimal.Zero,
		TotalTax:      decimal.Zero,
		GrandTotal:    decimal.Zero,
		TotalSavings:  decimal.Zero,
	}
	for _, item := range items {
		out.TotalSubtotal = out.TotalSubtotal.Add(item.Subtotal)
		out.TotalShipping = out.TotalShipping.Add(item.ShippingCost)
		out.TotalTax = out.TotalTax.Add(item.Tax)
		out.TotalSavings = out.TotalSavings.Add(item.Savings)
	}
	out.GrandTotal = out.TotalSubtotal.Add(out.TotalShipping).Add(out.TotalTax)
	return out, nil
}
