package sim

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"

	"swerve-core/kinematics"
)

// Platform ties four simulated modules and a gyro to one chassis and keeps a
// ground-truth pose independent of odometry.
type Platform struct {
	Modules [kinematics.NumModules]*Module
	Gyro    *Gyro

	kin   *kinematics.Kinematics
	truth kinematics.Pose2D
}

// NewPlatform builds ideal hardware for the given layout.
func NewPlatform(kin *kinematics.Kinematics, maxSpeed float64) *Platform {
	p := &Platform{Gyro: NewGyro(), kin: kin}
	for i := range p.Modules {
		p.Modules[i] = NewModule(maxSpeed)
	}
	return p
}

// Step advances every module and rotates the gyro by the chassis rate the
// module states imply.
func (p *Platform) Step(dt float64) {
	var states [kinematics.NumModules]kinematics.ModuleState
	for i, m := range p.Modules {
		states[i] = m.State()
		m.Step(dt)
	}
	v := p.kin.ToChassisVelocity(states)
	dtheta := s1.Angle(v.Omega * dt)

	d := kinematics.RotateBy(kinematics.Vec(v.Vx*dt, v.Vy*dt), p.truth.Heading)
	p.truth = kinematics.Pose2D{
		Translation: p.truth.Translation.Add(d),
		Heading:     (p.truth.Heading + dtheta).Normalized(),
	}
	p.Gyro.Rotate(dtheta)
}

// Truth returns the simulated ground-truth pose.
func (p *Platform) Truth() kinematics.Pose2D { return p.truth }

// TargetSensor reports yaw and range from the platform to a fixed field point.
type TargetSensor struct {
	platform *Platform
	target   r2.Point
}

func NewTargetSensor(p *Platform, target r2.Point) *TargetSensor {
	return &TargetSensor{platform: p, target: target}
}

// YawToTarget is positive when the target is to the right of the heading.
func (s *TargetSensor) YawToTarget() float64 {
	pose := s.platform.Truth()
	d := s.target.Sub(pose.Translation)
	if d.Norm() == 0 {
		return 0
	}
	bearing := s1.Angle(math.Atan2(d.Y, d.X))
	return -(bearing - pose.Heading).Normalized().Degrees()
}

func (s *TargetSensor) DistanceToTarget() float64 {
	return s.target.Sub(s.platform.Truth().Translation).Norm()
}
