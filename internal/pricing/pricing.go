// Package pricing resolves a sized system into itemized equipment costs.
//
// There is one resolution function per equipment category, driven by
// size-tiered unit pricing tables supplied through the Repository interface.
// Markups (balance of plant, EPC) and pass-through costs (tariff, shipping)
// are separate, visible line items, never folded into equipment prices.
package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ugobe007/merlin-quote/internal/faults"
	"github.com/ugobe007/merlin-quote/internal/sizing"
)

// Repository supplies the read-only pricing reference data. Implementations
// must be safe for concurrent readers and must never expose a partially
// updated table.
type Repository interface {
	Tier(ctx context.Context, category Category) (Tier, error)
	Markups(ctx context.Context) (Markups, error)
}

// Markups carries the versioned percentage markups and pass-through rates
// applied on top of the equipment subtotal.
type Markups struct {
	BOPPercent     float64 `json:"bopPercent"`
	EPCPercent     float64 `json:"epcPercent"`
	TariffPercent  float64 `json:"tariffPercent"`
	ShippingPerKWh float64 `json:"shippingPerKWh"`
	Version        string  `json:"version"`
}

// RenewablesConfig selects the optional generation capacity to price
// alongside the storage system.
type RenewablesConfig struct {
	SolarKW     float64 `json:"solarKW"`
	WindKW      float64 `json:"windKW"`
	GeneratorKW float64 `json:"generatorKW"`
}

// LineItem is one priced component of the quote.
type LineItem struct {
	Category    Category `json:"category"`
	Capacity    float64  `json:"capacity"`
	Unit        string   `json:"unit"`
	UnitPrice   float64  `json:"unitPrice"`
	TotalCost   float64  `json:"totalCost"`
	PriceSource string   `json:"priceSource"`
}

// Result is the itemized pricing output.
type Result struct {
	Items             []LineItem `json:"items"`
	EquipmentSubtotal float64    `json:"equipmentSubtotal"`
	TotalCost         float64    `json:"totalCost"`
	MarkupVersion     string     `json:"markupVersion"`
}

// Resolver prices sized systems against a Repository. Stateless; safe for
// concurrent use.
type Resolver struct {
	repo Repository
}

// NewResolver returns a Resolver backed by the given repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Price resolves every applicable equipment category for the sized system.
// Zero-capacity categories produce no line item. Malformed tier tables fail
// the whole request with faults.LookupError.
func (r *Resolver) Price(ctx context.Context, siz sizing.Result, opts RenewablesConfig) (Result, error) {
	if siz.BESSPowerKW <= 0 || siz.BESSEnergyKWh <= 0 {
		return Result{}, &faults.ValidationError{
			Field:  "bessPowerKW",
			Reason: "system size must be positive",
		}
	}
	if opts.SolarKW < 0 || opts.WindKW < 0 || opts.GeneratorKW < 0 {
		return Result{}, &faults.ValidationError{
			Field:  "renewables",
			Reason: "capacities must be greater than or equal to 0",
		}
	}

	capacities := map[Category]float64{
		Battery:     siz.BESSEnergyKWh,
		Inverter:    siz.BESSPowerKW,
		Transformer: siz.BESSPowerKW,
		Solar:       opts.SolarKW,
		Wind:        opts.WindKW,
		Generator:   opts.GeneratorKW,
	}

	var items []LineItem
	subtotal := decimal.Zero
	for _, category := range EquipmentCategories() {
		capacity := capacities[category]
		if capacity == 0 {
			continue
		}
		item, err := r.priceCategory(ctx, category, capacity)
		if err != nil {
			return Result{}, err
		}
		items = append(items, item)
		subtotal = subtotal.Add(decimal.NewFromFloat(item.TotalCost))
	}

	markups, err := r.repo.Markups(ctx)
	if err != nil {
		return Result{}, err
	}

	total := subtotal
	for _, derived := range []struct {
		category Category
		cost     decimal.Decimal
		source   string
	}{
		{BalanceOfPlant, percentOf(subtotal, markups.BOPPercent), fmt.Sprintf("%.1f%% of equipment subtotal (%s)", markups.BOPPercent, markups.Version)},
		{EPC, percentOf(subtotal, markups.EPCPercent), fmt.Sprintf("%.1f%% of equipment subtotal (%s)", markups.EPCPercent, markups.Version)},
		{Tariff, percentOf(subtotal, markups.TariffPercent), fmt.Sprintf("%.1f%% import duty on equipment subtotal (%s)", markups.TariffPercent, markups.Version)},
		{Shipping, roundCents(decimal.NewFromFloat(markups.ShippingPerKWh * siz.BESSEnergyKWh)), fmt.Sprintf("$%.2f/kWh shipped (%s)", markups.ShippingPerKWh, markups.Version)},
	} {
		if derived.cost.IsZero() {
			continue
		}
		items = append(items, LineItem{
			Category:    derived.category,
			Capacity:    1,
			Unit:        "lot",
			UnitPrice:   derived.cost.InexactFloat64(),
			TotalCost:   derived.cost.InexactFloat64(),
			PriceSource: derived.source,
		})
		total = total.Add(derived.cost)
	}

	return Result{
		Items:             items,
		EquipmentSubtotal: subtotal.InexactFloat64(),
		TotalCost:         total.InexactFloat64(),
		MarkupVersion:     markups.Version,
	}, nil
}

// priceCategory is the single resolution path for one equipment category.
func (r *Resolver) priceCategory(ctx context.Context, category Category, capacity float64) (LineItem, error) {
	tier, err := r.repo.Tier(ctx, category)
	if err != nil {
		return LineItem{}, err
	}
	unitPrice, source, err := tier.UnitPriceFor(capacity)
	if err != nil {
		return LineItem{}, err
	}
	total := roundCents(decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromFloat(capacity)))
	return LineItem{
		Category:    category,
		Capacity:    capacity,
		Unit:        tier.Unit,
		UnitPrice:   unitPrice,
		TotalCost:   total.InexactFloat64(),
		PriceSource: source,
	}, nil
}

func percentOf(base decimal.Decimal, percent float64) decimal.Decimal {
	return roundCents(base.Mul(decimal.NewFromFloat(percent)).Div(decimal.NewFromInt(100)))
}

func roundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
