package traffic

import (
	"FleetTrack/internal/model"

	"github.com/paulmach/orb"
)

// FallbackSource labels reports built from the static incident set.
const FallbackSource = "fallback-sample"

// Fallback returns the static incident set served when no provider data is available.
// Each call returns fresh slices.
func Fallback() []model.TrafficFeature {
	return []model.TrafficFeature{
		{
			Geometry:    orb.LineString{{90.398, 23.780}, {90.404, 23.788}, {90.412, 23.795}, {90.419, 23.801}},
			Severity:    model.SeverityModerate,
			Description: "Simulated congestion near Tejgaon Industrial Area.",
		},
		{
			Geometry:    orb.LineString{{90.365, 23.751}, {90.376, 23.757}, {90.388, 23.761}, {90.397, 23.768}},
			Severity:    model.SeverityHeavy,
			Description: "Simulated gridlock on Mirpur Road toward Dhanmondi.",
		},
		{
			Geometry:    orb.LineString{{90.430, 23.824}, {90.437, 23.803}, {90.444, 23.785}},
			Severity:    model.SeverityLight,
			Description: "Smooth flow on Dhaka - Chittagong Highway segment.",
		},
	}
}
