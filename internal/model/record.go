package model

import "github.com/google/uuid"

// DefaultColor is the display color assigned to every new record.
const DefaultColor = "#fa5252"

// Record is one parsed notice with its geometry and metadata.
// ID and RawText are immutable after creation; Visible is the only field
// mutated afterwards (via the store's visibility toggle).
type Record struct {
	ID            string   `json:"id"`
	RawText       string   `json:"raw_text"`
	Identifiers   []string `json:"ids"`
	Geometry      Geometry `json:"geometry"`
	AltitudeLower string   `json:"altitude_lower"`
	AltitudeUpper string   `json:"altitude_upper"`
	Description   string   `json:"description,omitempty"`
	Visible       bool     `json:"visible"`
	Color         string   `json:"color"`
}

// Draft holds the fields of one parse-service entry before identity and
// display attributes are assigned.
type Draft struct {
	RawText       string
	Identifiers   []string
	Geometry      Geometry
	AltitudeLower string
	AltitudeUpper string
	Description   string
}

// NewRecord normalizes a draft into a Record: a fresh id is minted, the
// default color assigned, visibility defaults to true, and the geometry is
// canonicalized so inconsistent tag/coordinate combinations become unknown.
func NewRecord(d Draft) Record {
	return Record{
		ID:            uuid.NewString(),
		RawText:       d.RawText,
		Identifiers:   d.Identifiers,
		Geometry:      d.Geometry.Canonical(),
		AltitudeLower: d.AltitudeLower,
		AltitudeUpper: d.AltitudeUpper,
		Description:   d.Description,
		Visible:       true,
		Color:         DefaultColor,
	}
}
