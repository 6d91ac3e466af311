package sizing

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed constants.yaml
var constantsYAML []byte

// Catalog holds the versioned sizing constants. All numeric figures used by
// the calculator come from here, never from literals in code, so that a
// constant change is a visible catalog diff plus a version bump.
type Catalog struct {
	Version    string                      `yaml:"catalogVersion"`
	Facilities map[string]FacilityConstant `yaml:"facilities"`
	EVCharging EVChargingConstant          `yaml:"evCharging"`
	Durations  DurationTable               `yaml:"durations"`
	Multiplier MultiplierTable             `yaml:"powerMultipliers"`
}

// FacilityConstant describes how one facility type converts its answers into
// a base peak demand.
type FacilityConstant struct {
	Method       string              `yaml:"method"` // linear | area | equipment
	UnitAnswer   string              `yaml:"unitAnswer"`
	KWPerUnit    float64             `yaml:"kwPerUnit"`
	AreaAnswer   string              `yaml:"areaAnswer"`
	WattsPerSqFt float64             `yaml:"wattsPerSqFt"`
	Equipment    []EquipmentConstant `yaml:"equipment"`
	Criticality  string              `yaml:"criticality"`
	Source       string              `yaml:"source"`
}

// EquipmentConstant is one additive load term for equipment-sum facilities.
type EquipmentConstant struct {
	Answer    string  `yaml:"answer"`
	RatedKW   float64 `yaml:"ratedKW"`
	DutyCycle float64 `yaml:"dutyCycle"`
	Source    string  `yaml:"source"`
}

// EVChargingConstant parameterizes the universal EV-charging load adjustment.
type EVChargingConstant struct {
	Level2KW    float64 `yaml:"level2KW"`
	DCFastKW    float64 `yaml:"dcFastKW"`
	Level2Share float64 `yaml:"level2Share"`
	DCFastShare float64 `yaml:"dcFastShare"`
	Utilization float64 `yaml:"utilization"`
	Source      string  `yaml:"source"`
}

// DurationTable maps criticality tier to recommended storage hours.
type DurationTable struct {
	Source string             `yaml:"source"`
	Hours  map[string]float64 `yaml:"hours"`
}

// MultiplierTable maps criticality tier to the BESS power-to-peak ratio.
type MultiplierTable struct {
	Source string             `yaml:"source"`
	Ratios map[string]float64 `yaml:"ratios"`
}

// LoadCatalog parses and validates the embedded constants catalog.
func LoadCatalog() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(constantsYAML, &c); err != nil {
		return nil, fmt.Errorf("parse sizing constants catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// MustCatalog is LoadCatalog for initialization paths where the embedded
// catalog is known good (it is validated by tests).
func MustCatalog() *Catalog {
	c, err := LoadCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) validate() error {
	if c.Version == "" {
		return fmt.Errorf("sizing catalog: catalogVersion is empty")
	}
	for _, ft := range AllFacilityTypes() {
		fc, ok := c.Facilities[string(ft)]
		if !ok {
			return fmt.Errorf("sizing catalog: no constants for facility type %q", ft)
		}
		if fc.Source == "" && fc.Method != "equipment" {
			return fmt.Errorf("sizing catalog: %s: missing source citation", ft)
		}
		if _, ok := c.Durations.Hours[fc.Criticality]; !ok {
			return fmt.Errorf("sizing catalog: %s: unknown criticality tier %q", ft, fc.Criticality)
		}
		if _, ok := c.Multiplier.Ratios[fc.Criticality]; !ok {
			return fmt.Errorf("sizing catalog: %s: no power multiplier for tier %q", ft, fc.Criticality)
		}
		switch fc.Method {
		case "linear":
			if fc.UnitAnswer == "" || fc.KWPerUnit <= 0 {
				return fmt.Errorf("sizing catalog: %s: linear method needs unitAnswer and positive kwPerUnit", ft)
			}
		case "area":
			if fc.AreaAnswer == "" || fc.WattsPerSqFt <= 0 {
				return fmt.Errorf("sizing catalog: %s: area method needs areaAnswer and positive wattsPerSqFt", ft)
			}
		case "equipment":
			if len(fc.Equipment) == 0 {
				return fmt.Errorf("sizing catalog: %s: equipment method needs at least one equipment entry", ft)
			}
			for _, eq := range fc.Equipment {
				if eq.Answer == "" || eq.RatedKW <= 0 || eq.DutyCycle <= 0 || eq.DutyCycle > 1 {
					return fmt.Errorf("sizing catalog: %s: malformed equipment entry %q", ft, eq.Answer)
				}
				if eq.Source == "" {
					return fmt.Errorf("sizing catalog: %s: equipment entry %q missing source citation", ft, eq.Answer)
				}
			}
		default:
			return fmt.Errorf("sizing catalog: %s: unknown method %q", ft, fc.Method)
		}
	}
	if c.EVCharging.Level2KW <= 0 || c.EVCharging.DCFastKW <= 0 ||
		c.EVCharging.Utilization <= 0 || c.EVCharging.Utilization > 1 {
		return fmt.Errorf("sizing catalog: malformed evCharging constants")
	}
	return nil
}
