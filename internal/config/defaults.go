package config

// Default tuning for the beer pong table. Scenario files override these;
// the values match the throw agent the scenes were tuned with.
const (
	DefaultMaxPitch       = 30.0 // degrees
	DefaultMaxYaw         = 20.0 // degrees
	DefaultMaxThrowForce  = 3.0
	DefaultBaseThrowForce = 1.0

	// DefaultBallMass maps the throw force range [1,4] to launch speeds of
	// 2 to 8 m/s.
	DefaultBallMass       = 0.5
	DefaultBallRadius     = 0.02
	DefaultMaxCupDistance = 3.0 // normalises the distance observation

	DefaultFixedDeltaTime = 0.02 // seconds per physics tick
	DefaultGravityY       = -9.81

	DefaultLineSegments   = 20
	DefaultShowPercentage = 50

	DefaultRestitution      = 0.8
	DefaultMaxFlightTicks   = 500
	DefaultMaxSteps         = 5000
	DefaultDecisionInterval = 0.5

	DefaultHitReward        = 0.8
	DefaultBounceBonus      = 0.2
	DefaultRimContactReward = 0.1
	DefaultClearReward      = 1.0
	DefaultBoundaryPenalty  = 0.1
	DefaultWrongCupPenalty  = 0.1

	// Regulation table and 16 oz cups.
	DefaultTableHeight     = 0.76
	DefaultTableHalfWidth  = 0.76
	DefaultTableHalfLength = 1.37
	DefaultCupRadius       = 0.046
	DefaultCupHeight       = 0.12
)
