package sizing

import (
	"fmt"
	"strings"

	"github.com/ugobe007/merlin-quote/internal/faults"
)

// FacilityType identifies one of the supported facility kinds. Unknown values
// are rejected at profile construction, never deep inside a calculation.
type FacilityType string

const (
	Hotel      FacilityType = "hotel"
	Hospital   FacilityType = "hospital"
	DataCenter FacilityType = "datacenter"
	CarWash    FacilityType = "carwash"
	Warehouse  FacilityType = "warehouse"
	Office     FacilityType = "office"
	Retail     FacilityType = "retail"
	EVFleet    FacilityType = "evfleet"
)

// AllFacilityTypes returns the supported types in stable order.
func AllFacilityTypes() []FacilityType {
	return []FacilityType{Hotel, Hospital, DataCenter, CarWash, Warehouse, Office, Retail, EVFleet}
}

// ParseFacilityType validates a wire value against the enum.
func ParseFacilityType(raw string) (FacilityType, error) {
	ft := FacilityType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllFacilityTypes() {
		if ft == known {
			return ft, nil
		}
	}
	return "", &faults.ConfigurationError{
		Field:  "facilityType",
		Reason: fmt.Sprintf("unrecognized facility type %q", raw),
	}
}

// GridConnection is the grid-quality answer from the wizard.
type GridConnection string

const (
	GridReliable   GridConnection = "reliable"
	GridUnreliable GridConnection = "unreliable"
	GridLimited    GridConnection = "limited"
	GridOffGrid    GridConnection = "off_grid"
	GridMicrogrid  GridConnection = "microgrid"
)

// Profile is the immutable input to the sizing calculator: one facility type
// plus the flat question/answer map collected by the wizard.
type Profile struct {
	FacilityType FacilityType
	Answers      map[string]any
}

// NewProfile validates the facility type and freezes the answer map.
func NewProfile(facilityType string, answers map[string]any) (Profile, error) {
	ft, err := ParseFacilityType(facilityType)
	if err != nil {
		return Profile{}, err
	}
	copied := make(map[string]any, len(answers))
	for k, v := range answers {
		copied[k] = v
	}
	return Profile{FacilityType: ft, Answers: copied}, nil
}

// answerNumber reads a numeric answer. JSON decoding produces float64, but
// callers assembling profiles in Go may pass ints.
func answerNumber(answers map[string]any, key string) (float64, bool, error) {
	raw, ok := answers[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, true, nil
	case float32:
		return float64(v), true, nil
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	default:
		return 0, false, &faults.ValidationError{
			Field:  key,
			Reason: fmt.Sprintf("expected a number, got %T", raw),
		}
	}
}

// requiredNumber returns a ConfigurationError when the answer is absent:
// required fields are never silently defaulted.
func requiredNumber(answers map[string]any, key string) (float64, error) {
	v, ok, err := answerNumber(answers, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &faults.ConfigurationError{Field: key, Reason: "required answer is missing"}
	}
	return v, nil
}

// requiredPositive additionally rejects zero and negative values.
func requiredPositive(answers map[string]any, key string) (float64, error) {
	v, err := requiredNumber(answers, key)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, &faults.ValidationError{Field: key, Reason: "must be greater than 0"}
	}
	return v, nil
}

// optionalNonNegative returns def when absent and rejects negative values.
func optionalNonNegative(answers map[string]any, key string, def float64) (float64, error) {
	v, ok, err := answerNumber(answers, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	if v < 0 {
		return 0, &faults.ValidationError{Field: key, Reason: "must be greater than or equal to 0"}
	}
	return v, nil
}

func answerString(answers map[string]any, key string) (string, bool, error) {
	raw, ok := answers[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, &faults.ValidationError{
			Field:  key,
			Reason: fmt.Sprintf("expected a string, got %T", raw),
		}
	}
	return s, true, nil
}

// gridConnection reads the required gridConnection answer.
func gridConnection(answers map[string]any) (GridConnection, error) {
	raw, ok, err := answerString(answers, "gridConnection")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &faults.ConfigurationError{Field: "gridConnection", Reason: "required answer is missing"}
	}
	gc := GridConnection(strings.ToLower(strings.TrimSpace(raw)))
	switch gc {
	case GridReliable, GridUnreliable, GridLimited, GridOffGrid, GridMicrogrid:
		return gc, nil
	}
	return "", &faults.ValidationError{
		Field:  "gridConnection",
		Reason: fmt.Sprintf("unknown grid connection %q", raw),
	}
}
