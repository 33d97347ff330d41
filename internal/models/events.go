package models

import "strings"

// Normalized event types that take part in matching.
const (
	EventMetalLoss              = "Metal Loss"
	EventCluster                = "Cluster"
	EventMetalLossManufacturing = "Metal Loss Manufacturing"
	EventDent                   = "Dent"
	EventSeamWeldManufacturing  = "Seam Weld Manufacturing"
	EventSeamWeldAnomaly        = "Seam Weld Anomaly"
	EventSeamWeldDent           = "Seam Weld Dent"
	EventGirthWeldAnomaly       = "Girth Weld Anomaly"
)

var anomalyTypes = map[string]bool{
	EventMetalLoss:              true,
	EventCluster:                true,
	EventMetalLossManufacturing: true,
	EventDent:                   true,
	EventSeamWeldManufacturing:  true,
	EventSeamWeldAnomaly:        true,
	EventSeamWeldDent:           true,
	EventGirthWeldAnomaly:       true,
}

// compatibleGroups lists event types that the vendors report interchangeably.
var compatibleGroups = [][]string{
	{EventMetalLoss, EventCluster},
	{EventMetalLossManufacturing, EventSeamWeldManufacturing},
	{EventDent, EventSeamWeldDent},
}

// NormalizeEventType trims and title-cases an event type against the known set.
func NormalizeEventType(t string) string {
	t = strings.Join(strings.Fields(t), " ")
	for known := range anomalyTypes {
		if strings.EqualFold(known, t) {
			return known
		}
	}
	return t
}

// IsAnomalyType reports whether the event type takes part in matching.
func IsAnomalyType(t string) bool {
	return anomalyTypes[NormalizeEventType(t)]
}

// TypesCompatible reports whether two distinct types belong to one group.
func TypesCompatible(a, b string) bool {
	a, b = NormalizeEventType(a), NormalizeEventType(b)
	for _, group := range compatibleGroups {
		var hasA, hasB bool
		for _, t := range group {
			hasA = hasA || t == a
			hasB = hasB || t == b
		}
		if hasA && hasB {
			return true
		}
	}
	return false
}

// NormalizeSurface maps vendor spellings onto the Surface set.
func NormalizeSurface(s string) Surface {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "internal", "int", "id":
		return SurfaceInternal
	case "external", "ext", "od":
		return SurfaceExternal
	default:
		return SurfaceUnknown
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}
