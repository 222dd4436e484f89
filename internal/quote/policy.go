package quote

import "github.com/shopspring/decimal"

// ShippingMethod enumerates the supported freight options.
type ShippingMethod string

const (
	MethodStandard ShippingMethod = "standard"
	MethodExpress  ShippingMethod = "express"
	MethodEconomy  ShippingMethod = "economy"
)

// ParseShippingMethod validates a raw method string. Empty input selects the
// standard method; anything else unknown is rejected rather than defaulted,
// since a silently substituted method would change the meaning of the quote.
func ParseShippingMethod(raw string) (ShippingMethod, error) {
	switch ShippingMethod(raw) {
	case "":
		return MethodStandard, nil
	case MethodStandard, MethodExpress, MethodEconomy:
		return ShippingMethod(raw), nil
	default:
		return "", ErrUnknownShippingMethod
	}
}

// Tier maps a quantity range to a volume discount fraction.
type Tier struct {
	MinQuantity int             `json:"minQuantity"`
	MaxQuantity *int            `json:"maxQuantity"` // nil = unbounded
	Discount    decimal.Decimal `json:"discount"`
}

// ShippingRate holds the cost parameters for one shipping method.
type ShippingRate struct {
	BaseRate     decimal.Decimal
	PerKgRate    decimal.Decimal
	DeliveryDays int
}

// Policy groups the pricing tables used by the engine. Instances are
// immutable after construction; tests inject custom tables instead of
// mutating process-wide state.
type Policy struct {
	Tiers             []Tier
	Rates             map[ShippingMethod]ShippingRate
	TaxRate           decimal.Decimal
	UnitWeightKg      decimal.Decimal
	DefaultDistanceKm int
	Distances         map[string]map[string]int
}

// DefaultPolicy returns the production pricing tables: five exhaustive,
// non-overlapping volume tiers, three shipping methods, an 18% tax rate,
// and the distance matrix for the served cities.
func DefaultPolicy() Policy {
	return Policy{
		Tiers: []Tier{
			{MinQuantity: 1, MaxQuantity: intPtr(10), Discount: decimal.Zero},
			{MinQuantity: 11, MaxQuantity: intPtr(50), Discount: decimal.NewFromFloat(0.05)},
			{MinQuantity: 51, MaxQuantity: intPtr(100), Discount: decimal.NewFromFloat(0.1)},
			{MinQuantity: 101, MaxQuantity: intPtr(500), Discount: decimal.NewFromFloat(0.15)},
			{MinQuantity: 501, MaxQuantity: nil, Discount: decimal.NewFromFloat(0.2)},
		},
		Rates: map[ShippingMethod]ShippingRate{
			MethodStandard: {BaseRate: decimal.NewFromInt(50), PerKgRate: decimal.NewFromFloat(2.5), DeliveryDays: 5},
			MethodExpress:  {BaseRate: decimal.NewFromInt(100), PerKgRate: decimal.NewFromFloat(5.0), DeliveryDays: 2},
			MethodEconomy:  {BaseRate: decimal.NewFromInt(25), PerKgRate: decimal.NewFromFloat(1.5), DeliveryDays: 10},
		},
		TaxRate:           decimal.NewFromFloat(0.18),
		UnitWeightKg:      decimal.NewFromFloat(0.5),
		DefaultDistanceKm: 100,
		Distances: map[string]map[string]int{
			"Curitiba":      {"Londrina": 380, "Maringá": 430, "Cascavel": 500, "Foz do Iguaçu": 640},
			"Londrina":      {"Curitiba": 380, "Maringá": 120, "Cascavel": 380, "Foz do Iguaçu": 490},
			"Maringá":       {"Curitiba": 430, "Londrina": 120, "Cascavel": 280, "Foz do Iguaçu": 370},
			"Cascavel":      {"Curitiba": 500, "Londrina": 380, "Maringá": 280, "Foz do Iguaçu": 140},
			"Foz do Iguaçu": {"Curitiba": 640, "Londrina": 490, "Maringá": 370, "Cascavel": 140},
		},
	}
}

func intPtr(v int) *int { return &v }
