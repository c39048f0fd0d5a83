package main

import (
	"math"

	"swerve-core/config"
	"swerve-core/control"
	"swerve-core/kinematics"
)

// VisionOutputs is what the behavior layer reads from the vision controller.
type VisionOutputs interface {
	AimRotationPower() float64
	AngleToShootAngle() float64
	AutoApproachPower() float64
}

// blendedControl combines a segment's base command, the follower's latest
// output and the vision powers into the speeds sent to the drive.
//
// In follower and approach modes the result is a chassis velocity for
// DriveChassisVelocity. Otherwise it is a Drive command.
//
// Approach speed is the magnitude of the approach power, always forward.
// The distance loop reports a negative power while the target is ahead and
// the reset default is +0.5, and both mean "close in".
func blendedControl(seg ScenarioSegment, follower kinematics.ChassisVelocity, v VisionOutputs, platform config.PlatformConfig, blend config.BlendedConfig) kinematics.ChassisVelocity {
	maxRate := platform.MaxAngularRateRadS * blend.AimRateFraction
	maxApproach := platform.MaxSpeedMPS * blend.ApproachSpeedFraction

	aim := func() float64 {
		power := v.AimRotationPower()
		if seg.Target == TargetShoot {
			power = v.AngleToShootAngle()
		}
		return control.ClampFloat(power, -1, 1) * maxRate
	}

	switch seg.Mode {
	case ModeFollower:
		out := follower
		if seg.Target != "" {
			out.Omega = aim()
		}
		return out
	case ModeAim:
		out := seg.Translation()
		out.Omega = aim()
		return out
	case ModeApproach:
		return kinematics.ChassisVelocity{
			Vx:    math.Min(math.Abs(v.AutoApproachPower()), 1) * maxApproach,
			Omega: control.ClampFloat(v.AngleToShootAngle(), -1, 1) * maxRate,
		}
	case ModeTeleop:
		return seg.Translation()
	default:
		return kinematics.ChassisVelocity{}
	}
}
