package sizing

// AnswerSpec describes one question key a facility type understands, for the
// wizard layer to render. Required answers fail sizing when absent; optional
// answers carry their documented default.
type AnswerSpec struct {
	Key      string  `json:"key"`
	Required bool    `json:"required"`
	Default  float64 `json:"default,omitempty"`
	Source   string  `json:"source,omitempty"`
}

// TypeMetadata is the wire description of one facility type.
type TypeMetadata struct {
	FacilityType FacilityType `json:"facilityType"`
	Criticality  string       `json:"criticality"`
	Answers      []AnswerSpec `json:"answers"`
}

// Metadata enumerates every facility type with its answer schema.
func (c *Calculator) Metadata() []TypeMetadata {
	out := make([]TypeMetadata, 0, len(AllFacilityTypes()))
	for _, ft := range AllFacilityTypes() {
		fc := c.catalog.Facilities[string(ft)]
		md := TypeMetadata{FacilityType: ft, Criticality: fc.Criticality}

		switch fc.Method {
		case "linear":
			md.Answers = append(md.Answers, AnswerSpec{Key: fc.UnitAnswer, Required: true, Source: fc.Source})
		case "area":
			md.Answers = append(md.Answers, AnswerSpec{Key: fc.AreaAnswer, Required: true, Source: fc.Source})
		case "equipment":
			for i, eq := range fc.Equipment {
				md.Answers = append(md.Answers, AnswerSpec{
					Key:      eq.Answer,
					Required: ft == DataCenter && i == 0,
					Source:   eq.Source,
				})
			}
		}

		md.Answers = append(md.Answers,
			AnswerSpec{Key: "gridConnection", Required: true},
			AnswerSpec{Key: "availableGridCapacityKW", Required: false},
			AnswerSpec{Key: "peakLoadKW", Required: false},
			AnswerSpec{Key: "existingSolarKW", Required: false},
			AnswerSpec{Key: "evChargingPorts", Required: false, Source: c.catalog.EVCharging.Source},
			AnswerSpec{Key: "backupHours", Required: false},
		)
		out = append(out, md)
	}
	return out
}
