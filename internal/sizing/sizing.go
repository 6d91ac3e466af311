// Package sizing turns a facility profile into a BESS sizing recommendation.
//
// There is exactly one calculation path: one sub-function per facility type
// behind an exhaustive switch, followed by adjustments applied in a fixed
// order (EV charging load, existing-solar credit, duration lookup, grid-gap
// analysis). Shared logic lives in shared helpers, never copy-pasted into a
// per-type function.
package sizing

import (
	"math"

	"github.com/ugobe007/merlin-quote/internal/faults"
)

// Result is the sizing output. It is computed fresh for every request and
// never mutated in place.
type Result struct {
	PeakDemandKW             float64 `json:"peakDemandKW"`
	BaseDemandKW             float64 `json:"baseDemandKW"`
	EVChargingKW             float64 `json:"evChargingKW"`
	SolarCreditKW            float64 `json:"solarCreditKW"`
	RecommendedDurationHours float64 `json:"recommendedDurationHours"`
	BESSPowerKW              float64 `json:"bessPowerKW"`
	BESSEnergyKWh            float64 `json:"bessEnergyKWh"`
	CriticalityTier          string  `json:"criticalityTier"`
	GenerationRequired       bool    `json:"generationRequired"`
	GenerationGapKW          float64 `json:"generationGapKW"`
	CatalogVersion           string  `json:"catalogVersion"`
}

// Calculator sizes facilities using a fixed constants catalog. It is
// stateless beyond the read-only catalog and safe for concurrent use.
type Calculator struct {
	catalog *Catalog
}

// NewCalculator returns a Calculator over the given constants catalog.
func NewCalculator(catalog *Catalog) *Calculator {
	return &Calculator{catalog: catalog}
}

// Size computes the sizing recommendation for a facility profile.
//
// It fails with faults.ConfigurationError when the facility type is
// unrecognized or a required answer is missing, and with
// faults.ValidationError when an answer is outside its valid range.
func (c *Calculator) Size(p Profile) (Result, error) {
	fc, ok := c.catalog.Facilities[string(p.FacilityType)]
	if !ok {
		return Result{}, &faults.ConfigurationError{
			Field:  "facilityType",
			Reason: "unrecognized facility type " + string(p.FacilityType),
		}
	}

	var (
		base float64
		err  error
	)
	switch p.FacilityType {
	case Hotel:
		base, err = c.sizeHotel(p.Answers, fc)
	case Hospital:
		base, err = c.sizeHospital(p.Answers, fc)
	case DataCenter:
		base, err = c.sizeDataCenter(p.Answers, fc)
	case CarWash:
		base, err = c.sizeCarWash(p.Answers, fc)
	case Warehouse:
		base, err = c.sizeWarehouse(p.Answers, fc)
	case Office:
		base, err = c.sizeOffice(p.Answers, fc)
	case Retail:
		base, err = c.sizeRetail(p.Answers, fc)
	case EVFleet:
		base, err = c.sizeEVFleet(p.Answers, fc)
	default:
		return Result{}, &faults.ConfigurationError{
			Field:  "facilityType",
			Reason: "unhandled facility type " + string(p.FacilityType),
		}
	}
	if err != nil {
		return Result{}, err
	}

	// A metered peak from a utility bill beats the model when supplied.
	override, err := optionalNonNegative(p.Answers, "peakLoadKW", 0)
	if err != nil {
		return Result{}, err
	}
	if override > 0 {
		base = override
	}

	gc, err := gridConnection(p.Answers)
	if err != nil {
		return Result{}, err
	}

	// Adjustment 1: EV charging load.
	evLoad, err := c.evChargingLoad(p.Answers)
	if err != nil {
		return Result{}, err
	}
	peak := base + evLoad

	// Adjustment 2: existing on-site solar offsets peak grid draw on
	// grid-tied facilities, capped at the peak itself.
	solarCredit, err := c.solarCredit(p.Answers, gc, peak)
	if err != nil {
		return Result{}, err
	}
	peak -= solarCredit

	if peak <= 0 {
		return Result{}, &faults.ValidationError{
			Field:  "peakDemandKW",
			Reason: "computed peak demand is not positive",
		}
	}

	// Adjustment 3: storage duration from criticality, raised (never
	// lowered) by an explicit backup-hours requirement.
	duration := c.catalog.Durations.Hours[fc.Criticality]
	backupHours, err := optionalNonNegative(p.Answers, "backupHours", 0)
	if err != nil {
		return Result{}, err
	}
	if backupHours > duration {
		duration = backupHours
	}

	// Adjustment 4: grid-gap analysis.
	genRequired, genGap, err := c.generationGap(p.Answers, gc, peak)
	if err != nil {
		return Result{}, err
	}

	power := peak * c.catalog.Multiplier.Ratios[fc.Criticality]
	return Result{
		PeakDemandKW:             peak,
		BaseDemandKW:             base,
		EVChargingKW:             evLoad,
		SolarCreditKW:            solarCredit,
		RecommendedDurationHours: duration,
		BESSPowerKW:              power,
		BESSEnergyKWh:            power * duration,
		CriticalityTier:          fc.Criticality,
		GenerationRequired:       genRequired,
		GenerationGapKW:          genGap,
		CatalogVersion:           c.catalog.Version,
	}, nil
}

// Per-facility-type inputs. Each sub-function parses exactly the answers its
// type requires, so a missing field is reported before any arithmetic runs.

type hotelInput struct{ RoomCount float64 }

func (c *Calculator) sizeHotel(answers map[string]any, fc FacilityConstant) (float64, error) {
	rooms, err := requiredPositive(answers, fc.UnitAnswer)
	if err != nil {
		return 0, err
	}
	in := hotelInput{RoomCount: rooms}
	return in.RoomCount * fc.KWPerUnit, nil
}

type hospitalInput struct{ BedCount float64 }

func (c *Calculator) sizeHospital(answers map[string]any, fc FacilityConstant) (float64, error) {
	beds, err := requiredPositive(answers, fc.UnitAnswer)
	if err != nil {
		return 0, err
	}
	in := hospitalInput{BedCount: beds}
	return in.BedCount * fc.KWPerUnit, nil
}

type areaInput struct{ SquareFootage float64 }

func (c *Calculator) sizeOffice(answers map[string]any, fc FacilityConstant) (float64, error) {
	return c.sizeByArea(answers, fc)
}

func (c *Calculator) sizeWarehouse(answers map[string]any, fc FacilityConstant) (float64, error) {
	return c.sizeByArea(answers, fc)
}

func (c *Calculator) sizeRetail(answers map[string]any, fc FacilityConstant) (float64, error) {
	return c.sizeByArea(answers, fc)
}

func (c *Calculator) sizeByArea(answers map[string]any, fc FacilityConstant) (float64, error) {
	sqft, err := requiredPositive(answers, fc.AreaAnswer)
	if err != nil {
		return 0, err
	}
	in := areaInput{SquareFootage: sqft}
	return in.SquareFootage * fc.WattsPerSqFt / 1000.0, nil
}

func (c *Calculator) sizeDataCenter(answers map[string]any, fc FacilityConstant) (float64, error) {
	return c.sizeByEquipment(answers, fc, true)
}

func (c *Calculator) sizeCarWash(answers map[string]any, fc FacilityConstant) (float64, error) {
	return c.sizeByEquipment(answers, fc, false)
}

func (c *Calculator) sizeEVFleet(answers map[string]any, fc FacilityConstant) (float64, error) {
	return c.sizeByEquipment(answers, fc, false)
}

// sizeByEquipment sums equipmentCount × ratedKW × dutyCycle over the catalog
// entries for the type. When firstRequired is set the first entry is a
// required answer (a data center without rackCount is a configuration error);
// remaining entries default to zero.
func (c *Calculator) sizeByEquipment(answers map[string]any, fc FacilityConstant, firstRequired bool) (float64, error) {
	total := 0.0
	counted := false
	for i, eq := range fc.Equipment {
		var (
			count float64
			err   error
		)
		if firstRequired && i == 0 {
			count, err = requiredPositive(answers, eq.Answer)
		} else {
			count, err = optionalNonNegative(answers, eq.Answer, 0)
		}
		if err != nil {
			return 0, err
		}
		if count > 0 {
			counted = true
		}
		total += count * eq.RatedKW * eq.DutyCycle
	}
	if !counted {
		return 0, &faults.ConfigurationError{
			Field:  fc.Equipment[0].Answer,
			Reason: "at least one equipment count must be provided",
		}
	}
	return total, nil
}

// evChargingLoad computes the universal EV-charging adjustment from the
// evChargingPorts answer using the catalog's port mix and utilization.
func (c *Calculator) evChargingLoad(answers map[string]any) (float64, error) {
	ports, err := optionalNonNegative(answers, "evChargingPorts", 0)
	if err != nil {
		return 0, err
	}
	if ports == 0 {
		return 0, nil
	}
	ev := c.catalog.EVCharging
	l2 := ports * ev.Level2Share * ev.Level2KW
	dcfc := ports * ev.DCFastShare * ev.DCFastKW
	return (l2 + dcfc) * ev.Utilization, nil
}

// solarCredit returns the peak reduction from existing on-site solar.
// Off-grid facilities get no credit: their solar cannot offset grid draw.
func (c *Calculator) solarCredit(answers map[string]any, gc GridConnection, peakKW float64) (float64, error) {
	solarKW, err := optionalNonNegative(answers, "existingSolarKW", 0)
	if err != nil {
		return 0, err
	}
	if solarKW == 0 || gc == GridOffGrid {
		return 0, nil
	}
	return math.Min(solarKW, peakKW), nil
}

// generationGap decides whether on-site generation is required and how large
// the shortfall is. availableGridCapacityKW is required for limited
// connections and defaults to zero otherwise.
func (c *Calculator) generationGap(answers map[string]any, gc GridConnection, peakKW float64) (bool, float64, error) {
	switch gc {
	case GridReliable, GridMicrogrid:
		return false, 0, nil
	case GridOffGrid, GridUnreliable:
		available, err := optionalNonNegative(answers, "availableGridCapacityKW", 0)
		if err != nil {
			return false, 0, err
		}
		return true, math.Max(0, peakKW-available), nil
	case GridLimited:
		available, err := requiredNumber(answers, "availableGridCapacityKW")
		if err != nil {
			return false, 0, err
		}
		if available < 0 {
			return false, 0, &faults.ValidationError{
				Field:  "availableGridCapacityKW",
				Reason: "must be greater than or equal to 0",
			}
		}
		if peakKW > available {
			return true, peakKW - available, nil
		}
		return false, 0, nil
	}
	return false, 0, &faults.ValidationError{
		Field:  "gridConnection",
		Reason: "unknown grid connection " + string(gc),
	}
}
