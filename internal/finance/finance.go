// Package finance computes the investment-return metrics of a quote:
// payback period, 10-year ROI, NPV, and IRR.
package finance

import (
	"encoding/json"
	"math"

	"github.com/ugobe007/merlin-quote/internal/faults"
)

const (
	// DefaultDemandChargePerKWMonth is used when the caller supplies no
	// annual-savings figure. Source: NREL utility rate database, median US
	// commercial demand charge.
	DefaultDemandChargePerKWMonth = 15.0

	// DefaultHorizonYears is the cash-flow horizon when unspecified.
	DefaultHorizonYears = 10

	irrLowerBound = -0.5
	irrUpperBound = 1.0
	irrTolerance  = 1e-7
	irrMaxIter    = 200
)

// Result carries the financial metrics. PaybackYears is +Inf when annual
// savings are not positive; IRR is nil when the cash flow has no internal
// rate of return in the search range.
type Result struct {
	TotalCapitalCost float64  `json:"totalCapitalCost"`
	AnnualSavings    float64  `json:"annualSavings"`
	PaybackYears     float64  `json:"-"`
	ROI10Year        float64  `json:"roi10Year"`
	NPV              float64  `json:"npv"`
	IRR              *float64 `json:"irr"`
	DiscountRate     float64  `json:"discountRate"`
}

// MarshalJSON renders an infinite payback as null so the wire shape stays
// valid JSON.
func (r Result) MarshalJSON() ([]byte, error) {
	type alias Result
	wire := struct {
		alias
		PaybackYears *float64 `json:"paybackYears"`
	}{alias: alias(r)}
	if !math.IsInf(r.PaybackYears, 1) {
		wire.PaybackYears = &r.PaybackYears
	}
	return json.Marshal(wire)
}

// UnmarshalJSON restores a null payback to +Inf.
func (r *Result) UnmarshalJSON(data []byte) error {
	type alias Result
	wire := struct {
		*alias
		PaybackYears *float64 `json:"paybackYears"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.PaybackYears == nil {
		r.PaybackYears = math.Inf(1)
	} else {
		r.PaybackYears = *wire.PaybackYears
	}
	return nil
}

// Evaluate computes all metrics for a capital cost, annual savings, and
// year-indexed cash flow (cashFlow[0] is the initial outlay, negative).
//
// Inputs are validated before any arithmetic: a negative or zero cost, a
// non-finite value, or a discount rate at or below -100% fail with
// faults.ValidationError.
func Evaluate(totalCapitalCost, annualSavings float64, cashFlow []float64, discountRate float64) (Result, error) {
	if !isFinite(totalCapitalCost) || totalCapitalCost <= 0 {
		return Result{}, &faults.ValidationError{Field: "totalCapitalCost", Reason: "must be a positive finite number"}
	}
	if !isFinite(annualSavings) {
		return Result{}, &faults.ValidationError{Field: "annualSavings", Reason: "must be finite"}
	}
	if !isFinite(discountRate) || discountRate <= -1 {
		return Result{}, &faults.ValidationError{Field: "discountRate", Reason: "must be greater than -1"}
	}
	for _, cf := range cashFlow {
		if !isFinite(cf) {
			return Result{}, &faults.ValidationError{Field: "cashFlow", Reason: "must contain only finite values"}
		}
	}

	payback := math.Inf(1)
	if annualSavings > 0 {
		payback = totalCapitalCost / annualSavings
	}

	return Result{
		TotalCapitalCost: totalCapitalCost,
		AnnualSavings:    annualSavings,
		PaybackYears:     payback,
		ROI10Year:        (10*annualSavings - totalCapitalCost) / totalCapitalCost,
		NPV:              NPV(cashFlow, discountRate),
		IRR:              IRR(cashFlow),
		DiscountRate:     discountRate,
	}, nil
}

// BuildCashFlow produces the standard quote cash flow: the capital cost as a
// year-zero outlay followed by the annual savings degraded geometrically
// (battery capacity fade reduces peak-shaving savings year over year).
func BuildCashFlow(totalCapitalCost, annualSavings float64, years int, degradationRate float64) []float64 {
	if years <= 0 {
		years = DefaultHorizonYears
	}
	flow := make([]float64, years+1)
	flow[0] = -totalCapitalCost
	yearSavings := annualSavings
	for t := 1; t <= years; t++ {
		flow[t] = yearSavings
		yearSavings *= 1 - degradationRate
	}
	return flow
}

// EstimateAnnualSavings models demand-charge reduction from peak shaving:
// the BESS power rating offsets billed demand every month.
func EstimateAnnualSavings(bessPowerKW, demandChargePerKWMonth float64) float64 {
	return bessPowerKW * demandChargePerKWMonth * 12
}

// NPV discounts the year-indexed cash flow at the given rate.
func NPV(cashFlow []float64, discountRate float64) float64 {
	npv := 0.0
	for t, cf := range cashFlow {
		npv += cf / math.Pow(1+discountRate, float64(t))
	}
	return npv
}

// IRR finds the rate that zeroes the NPV by bisection over a bounded range.
// It returns nil when the cash flow has no sign change in the range or the
// search does not converge within the iteration budget.
func IRR(cashFlow []float64) *float64 {
	if len(cashFlow) < 2 {
		return nil
	}

	lo, hi := irrLowerBound, irrUpperBound
	fLo, fHi := NPV(cashFlow, lo), NPV(cashFlow, hi)
	if fLo == 0 {
		return &lo
	}
	if fHi == 0 {
		return &hi
	}
	if (fLo > 0) == (fHi > 0) {
		return nil
	}

	for i := 0; i < irrMaxIter; i++ {
		mid := (lo + hi) / 2
		fMid := NPV(cashFlow, mid)
		if math.Abs(fMid) < irrTolerance || (hi-lo)/2 < irrTolerance {
			return &mid
		}
		if (fMid > 0) == (fLo > 0) {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
