package game

const (
	// ObservationSize is distance plus a unit direction.
	ObservationSize = 4

	// AllowedBounces is how many boundary contacts a throw survives.
	AllowedBounces = 1

	// triggerDepth is the share of the cup height filled with beer.
	triggerDepth = 0.8
)
