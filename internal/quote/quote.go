// Package quote assembles the final immutable quote document.
//
// Every computed section carries the formula version that produced it, so an
// exported quote can be traced back to the exact sizing catalog, pricing
// tables, and financial formulas involved even after those change.
package quote

import (
	"time"

	"github.com/google/uuid"

	"github.com/ugobe007/merlin-quote/internal/finance"
	"github.com/ugobe007/merlin-quote/internal/pricing"
	"github.com/ugobe007/merlin-quote/internal/sizing"
)

// Formula version tags stamped into assembled quotes. Bump when the
// corresponding computation changes shape.
const (
	SchemaVersion         = "quote/v1"
	SizingFormulaVersion  = "sizing/v2"
	PricingFormulaVersion = "pricing/v2"
	FinanceFormulaVersion = "finance/v1"
)

// FacilitySection echoes the input profile for auditability.
type FacilitySection struct {
	FacilityType string         `json:"facilityType"`
	Answers      map[string]any `json:"answers"`
}

// SizingSection is the sizing result plus its formula attribution. The
// sizing catalog version rides inside the result itself.
type SizingSection struct {
	FormulaVersion string        `json:"formulaVersion"`
	Result         sizing.Result `json:"result"`
}

// PricingSection is the itemized pricing result plus attribution.
type PricingSection struct {
	FormulaVersion string         `json:"formulaVersion"`
	Result         pricing.Result `json:"result"`
}

// FinancialSection is the financial metrics plus attribution.
type FinancialSection struct {
	FormulaVersion string         `json:"formulaVersion"`
	Result         finance.Result `json:"result"`
}

// Quote is the assembled result. It is created once and never mutated; a
// re-quote produces a new Quote with a new ID and timestamp.
type Quote struct {
	ID            string           `json:"id"`
	SchemaVersion string           `json:"formulaVersion"`
	CalculatedAt  time.Time        `json:"calculatedAt"`
	Facility      FacilitySection  `json:"facility"`
	Sizing        SizingSection    `json:"sizing"`
	Pricing       PricingSection   `json:"pricing"`
	Financial     FinancialSection `json:"financial"`
}

// Assemble combines the pipeline outputs into a Quote. It is total: all
// failure modes belong to the upstream calculators, so given well-typed
// inputs it cannot fail.
func Assemble(profile sizing.Profile, siz sizing.Result, priced pricing.Result, fin finance.Result) Quote {
	answers := make(map[string]any, len(profile.Answers))
	for k, v := range profile.Answers {
		answers[k] = v
	}
	return Quote{
		ID:            uuid.NewString(),
		SchemaVersion: SchemaVersion,
		CalculatedAt:  time.Now().UTC(),
		Facility: FacilitySection{
			FacilityType: string(profile.FacilityType),
			Answers:      answers,
		},
		Sizing:    SizingSection{FormulaVersion: SizingFormulaVersion, Result: siz},
		Pricing:   PricingSection{FormulaVersion: PricingFormulaVersion, Result: priced},
		Financial: FinancialSection{FormulaVersion: FinanceFormulaVersion, Result: fin},
	}
}
