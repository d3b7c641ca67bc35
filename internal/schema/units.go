package schema

import "sort"

// Data units accepted for raw trace values before scaling. The "/2"
// variants denote half-cycle conventions used by some interrogators.
var dataUnits = map[string]struct{}{
	"rad":    {},
	"m/m":    {},
	"cm/m":   {},
	"mm/m":   {},
	"um/m":   {},
	"nm/m":   {},
	"rad/2":  {},
	"m/m/2":  {},
	"cm/m/2": {},
	"mm/m/2": {},
	"um/m/2": {},
	"nm/m/2": {},
}

// Physical units accepted after the scale factor is applied.
var scaledUnits = map[string]struct{}{
	"ue/s": {},
	"ue/m": {},
}

// ValidDataUnit reports membership in the raw data unit set.
func ValidDataUnit(u string) bool {
	_, ok := dataUnits[u]
	return ok
}

// ValidScaledUnit reports membership in the scaled unit set.
func ValidScaledUnit(u string) bool {
	_, ok := scaledUnits[u]
	return ok
}

// DataUnits returns the accepted raw data units.
func DataUnits() []string {
	return sortedKeys(dataUnits)
}

// ScaledUnits returns the accepted scaled units.
func ScaledUnits() []string {
	return sortedKeys(scaledUnits)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
