package pricing

import (
	"fmt"

	"github.com/ugobe007/merlin-quote/internal/faults"
)

// Category identifies one priced equipment kind.
type Category string

const (
	Battery     Category = "battery"
	Inverter    Category = "inverter"
	Transformer Category = "transformer"
	Solar       Category = "solar"
	Wind        Category = "wind"
	Generator   Category = "generator"

	// Derived cost components, never tier-priced.
	BalanceOfPlant Category = "balance_of_plant"
	EPC            Category = "epc"
	Tariff         Category = "tariff"
	Shipping       Category = "shipping"
)

// EquipmentCategories lists the tier-priced categories in resolution order.
func EquipmentCategories() []Category {
	return []Category{Battery, Inverter, Transformer, Solar, Wind, Generator}
}

// Breakpoint is one capacity/price point of a tier table.
type Breakpoint struct {
	Capacity  float64 `json:"capacity"`
	UnitPrice float64 `json:"unitPrice"`
}

// Tier is the size-tiered unit pricing table for one equipment category.
// Breakpoints must be sorted ascending by capacity with no duplicates.
type Tier struct {
	Category    Category     `json:"category"`
	Unit        string       `json:"unit"` // capacity unit, e.g. "kWh" or "kW"
	Breakpoints []Breakpoint `json:"breakpoints"`
	Source      string       `json:"source"`
}

// Validate checks the structural invariants of the tier table. A violation is
// a data-integrity bug in the reference data, reported as a LookupError.
func (t Tier) Validate() error {
	if len(t.Breakpoints) == 0 {
		return &faults.LookupError{Category: string(t.Category), Reason: "tier table is empty"}
	}
	prev := -1.0
	for _, bp := range t.Breakpoints {
		if bp.Capacity < 0 || bp.UnitPrice < 0 {
			return &faults.LookupError{
				Category: string(t.Category),
				Reason:   fmt.Sprintf("negative breakpoint (%v, %v)", bp.Capacity, bp.UnitPrice),
			}
		}
		if bp.Capacity <= prev {
			return &faults.LookupError{
				Category: string(t.Category),
				Reason:   fmt.Sprintf("breakpoints not strictly ascending at capacity %v", bp.Capacity),
			}
		}
		prev = bp.Capacity
	}
	return nil
}

// UnitPriceFor resolves the unit price for a capacity. Capacities below the
// smallest breakpoint pay the smallest breakpoint's price, capacities above
// the largest pay the largest's, and anything in between is linearly
// interpolated. The returned attribution names the breakpoints involved.
func (t Tier) UnitPriceFor(capacity float64) (float64, string, error) {
	if err := t.Validate(); err != nil {
		return 0, "", err
	}
	if capacity < 0 {
		return 0, "", &faults.LookupError{
			Category: string(t.Category),
			Reason:   fmt.Sprintf("negative capacity %v", capacity),
		}
	}

	bps := t.Breakpoints
	first, last := bps[0], bps[len(bps)-1]
	if capacity <= first.Capacity {
		return first.UnitPrice, fmt.Sprintf("%s tier, floor at %v %s", t.Category, first.Capacity, t.Unit), nil
	}
	if capacity >= last.Capacity {
		return last.UnitPrice, fmt.Sprintf("%s tier, ceiling at %v %s", t.Category, last.Capacity, t.Unit), nil
	}
	for i := 1; i < len(bps); i++ {
		lo, hi := bps[i-1], bps[i]
		if capacity > hi.Capacity {
			continue
		}
		frac := (capacity - lo.Capacity) / (hi.Capacity - lo.Capacity)
		price := lo.UnitPrice + frac*(hi.UnitPrice-lo.UnitPrice)
		source := fmt.Sprintf("%s tier, interpolated between %v and %v %s", t.Category, lo.Capacity, hi.Capacity, t.Unit)
		return price, source, nil
	}
	// Unreachable given the bounds checks above.
	return 0, "", &faults.LookupError{Category: string(t.Category), Reason: "no bracketing breakpoints"}
}
