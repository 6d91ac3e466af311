package pricing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ugobe007/merlin-quote/internal/faults"
	"github.com/ugobe007/merlin-quote/internal/sizing"
)

// fakeRepository serves fixed tables, the unit-test stand-in for the sqlite
// store.
type fakeRepository struct {
	tiers   map[Category]Tier
	markups Markups
}

func (f *fakeRepository) Tier(_ context.Context, category Category) (Tier, error) {
	tier, ok := f.tiers[category]
	if !ok {
		return Tier{}, &faults.LookupError{Category: string(category), Reason: "no tier table"}
	}
	return tier, nil
}

func (f *fakeRepository) Markups(_ context.Context) (Markups, error) {
	return f.markups, nil
}

func flatTier(category Category, unit string, price float64) Tier {
	return Tier{
		Category: category,
		Unit:     unit,
		Breakpoints: []Breakpoint{
			{Capacity: 1, UnitPrice: price},
			{Capacity: 1e9, UnitPrice: price},
		},
	}
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		tiers: map[Category]Tier{
			Battery: {
				Category: Battery,
				Unit:     "kWh",
				Breakpoints: []Breakpoint{
					{Capacity: 2000, UnitPrice: 155},
					{Capacity: 15000, UnitPrice: 105},
				},
			},
			Inverter:    flatTier(Inverter, "kW", 80),
			Transformer: flatTier(Transformer, "kW", 40),
			Solar:       flatTier(Solar, "kW", 900),
			Wind:        flatTier(Wind, "kW", 1300),
			Generator:   flatTier(Generator, "kW", 500),
		},
		markups: Markups{
			BOPPercent:     10,
			EPCPercent:     15,
			TariffPercent:  5,
			ShippingPerKWh: 2,
			Version:        "markups-test-1",
		},
	}
}

func testSizing() sizing.Result {
	return sizing.Result{
		PeakDemandKW:             1000,
		RecommendedDurationHours: 4,
		BESSPowerKW:              800,
		BESSEnergyKWh:            3200,
	}
}

func TestTierInterpolationBoundaries(t *testing.T) {
	// Breakpoints at 2 and 15 MWh priced 155 and 105 $/kWh.
	tier := Tier{
		Category: Battery,
		Unit:     "MWh",
		Breakpoints: []Breakpoint{
			{Capacity: 2, UnitPrice: 155},
			{Capacity: 15, UnitPrice: 105},
		},
	}

	cases := []struct {
		capacity float64
		want     float64
		delta    float64
	}{
		{2, 155, 1e-9},
		{15, 105, 1e-9},
		{8.5, 130, 1},
		{0.5, 155, 1e-9}, // below smallest breakpoint: ceiling price
		{100, 105, 1e-9}, // above largest breakpoint: floor price
	}
	for _, tc := range cases {
		price, source, err := tier.UnitPriceFor(tc.capacity)
		require.NoError(t, err, "capacity %v", tc.capacity)
		assert.InDelta(t, tc.want, price, tc.delta, "capacity %v", tc.capacity)
		assert.NotEmpty(t, source)
	}
}

func TestTierRejectsMalformedTables(t *testing.T) {
	empty := Tier{Category: Battery}
	_, _, err := empty.UnitPriceFor(10)
	var lerr *faults.LookupError
	require.ErrorAs(t, err, &lerr)

	nonMonotonic := Tier{
		Category: Battery,
		Breakpoints: []Breakpoint{
			{Capacity: 10, UnitPrice: 100},
			{Capacity: 5, UnitPrice: 120},
		},
	}
	_, _, err = nonMonotonic.UnitPriceFor(7)
	require.ErrorAs(t, err, &lerr)

	negative := Tier{
		Category:    Battery,
		Breakpoints: []Breakpoint{{Capacity: -1, UnitPrice: 100}},
	}
	_, _, err = negative.UnitPriceFor(7)
	require.ErrorAs(t, err, &lerr)
}

func TestPriceItemizesEquipmentAndMarkups(t *testing.T) {
	resolver := NewResolver(newFakeRepository())

	result, err := resolver.Price(context.Background(), testSizing(), RenewablesConfig{SolarKW: 500})
	require.NoError(t, err)

	byCategory := map[Category]LineItem{}
	for _, item := range result.Items {
		byCategory[item.Category] = item
	}

	// Battery at 3200 kWh interpolates between the 2000 and 15000 kWh
	// breakpoints.
	battery := byCategory[Battery]
	wantUnit := 155 + (3200.0-2000)/(15000-2000)*(105-155)
	assert.InDelta(t, wantUnit, battery.UnitPrice, 1e-9)
	assert.InDelta(t, battery.UnitPrice*battery.Capacity, battery.TotalCost, 0.01)

	assert.Contains(t, byCategory, Inverter)
	assert.Contains(t, byCategory, Transformer)
	assert.Contains(t, byCategory, Solar)
	assert.NotContains(t, byCategory, Wind, "zero capacity must produce no line item")
	assert.NotContains(t, byCategory, Generator)

	// Markups and pass-throughs are their own visible items.
	subtotal := battery.TotalCost + byCategory[Inverter].TotalCost +
		byCategory[Transformer].TotalCost + byCategory[Solar].TotalCost
	assert.InDelta(t, subtotal, result.EquipmentSubtotal, 0.01)
	assert.InDelta(t, subtotal*0.10, byCategory[BalanceOfPlant].TotalCost, 0.01)
	assert.InDelta(t, subtotal*0.15, byCategory[EPC].TotalCost, 0.01)
	assert.InDelta(t, subtotal*0.05, byCategory[Tariff].TotalCost, 0.01)
	assert.InDelta(t, 2*3200, byCategory[Shipping].TotalCost, 0.01)

	wantTotal := subtotal +
		byCategory[BalanceOfPlant].TotalCost +
		byCategory[EPC].TotalCost +
		byCategory[Tariff].TotalCost +
		byCategory[Shipping].TotalCost
	assert.InDelta(t, wantTotal, result.TotalCost, 0.05)
	assert.Equal(t, "markups-test-1", result.MarkupVersion)
}

func TestPriceLineItemCostIdentity(t *testing.T) {
	resolver := NewResolver(newFakeRepository())

	result, err := resolver.Price(context.Background(), testSizing(), RenewablesConfig{
		SolarKW: 250, WindKW: 100, GeneratorKW: 400,
	})
	require.NoError(t, err)

	for _, item := range result.Items {
		assert.LessOrEqual(t, math.Abs(item.TotalCost-item.UnitPrice*item.Capacity), 0.01,
			"category %s", item.Category)
	}
}

func TestPriceRejectsNonPositiveSizing(t *testing.T) {
	resolver := NewResolver(newFakeRepository())

	_, err := resolver.Price(context.Background(), sizing.Result{}, RenewablesConfig{})
	var verr *faults.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestPriceRejectsNegativeRenewables(t *testing.T) {
	resolver := NewResolver(newFakeRepository())

	_, err := resolver.Price(context.Background(), testSizing(), RenewablesConfig{WindKW: -5})
	var verr *faults.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestPricePropagatesLookupErrors(t *testing.T) {
	repo := newFakeRepository()
	repo.tiers[Battery] = Tier{Category: Battery} // empty table: integrity bug
	resolver := NewResolver(repo)

	_, err := resolver.Price(context.Background(), testSizing(), RenewablesConfig{})
	var lerr *faults.LookupError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, string(Battery), lerr.Category)
}

func TestPriceIsDeterministic(t *testing.T) {
	resolver := NewResolver(newFakeRepository())

	first, err := resolver.Price(context.Background(), testSizing(), RenewablesConfig{SolarKW: 500})
	require.NoError(t, err)
	second, err := resolver.Price(context.Background(), testSizing(), RenewablesConfig{SolarKW: 500})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
