package drive

import "swerve-core/kinematics"

// Module is one steerable wheel. Backends report the last known good value
// instead of failing; none of these calls may block the control cycle.
type Module interface {
	// SetDesiredState commands speed and steering angle. openLoop selects
	// duty-cycle drive over velocity control.
	SetDesiredState(state kinematics.ModuleState, openLoop bool)
	State() kinematics.ModuleState
	Position() kinematics.ModulePosition
	// ResetToAbsolute re-seeds the steering encoder from the absolute sensor.
	ResetToAbsolute()
	ZeroEncoders()

	DebugSetDriveSpeed(speed float64)
	DebugSetSteeringSpeed(speed float64)
}

// Gyro is an absolute heading sensor reporting yaw in degrees in its own
// sign convention.
type Gyro interface {
	Yaw() float64
	SetYaw(deg float64)
	// ApplyDefaultConfig restores factory configuration. Called once at construction.
	ApplyDefaultConfig()
}

// ControlTarget is something a trajectory follower claims while it runs.
type ControlTarget interface {
	Name() string
	Active() bool
}

// InactiveTarget is handed to the follower in blended mode so it never
// contends with the real drive for scheduling.
type InactiveTarget struct{}

func (InactiveTarget) Name() string { return "inactive" }
func (InactiveTarget) Active() bool { return false }
