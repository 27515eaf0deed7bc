package domain

import "strings"

// Region is the coarse geography attached to an invoice. Scoring applies a
// per-region effect; anything outside the known set is treated as NA.
type Region string

const (
	RegionNA    Region = "NA"
	RegionEMEA  Region = "EMEA"
	RegionAPAC  Region = "APAC"
	RegionLATAM Region = "LATAM"
)

// NormalizeRegion trims and upper-cases raw input and falls back to NA for
// anything outside the known set. Intake relies on this so the scoring engine
// never sees junk region codes.
func NormalizeRegion(raw string) Region {
	switch r := Region(strings.ToUpper(strings.TrimSpace(raw))); r {
	case RegionNA, RegionEMEA, RegionAPAC, RegionLATAM:
		return r
	default:
		return RegionNA
	}
}
