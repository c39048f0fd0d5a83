// Package kinematics holds the swerve geometry types, the chassis/module
// transform and the dead-reckoning pose estimator.
//
// Frames follow the usual field convention: x forward, y left, headings
// counter-clockwise positive, distances in metres, angular rates in rad/s.
package kinematics

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
)

// NumModules is the number of wheel modules on the platform.
const NumModules = 4

// Degrees converts a value in degrees to an angle.
func Degrees(deg float64) s1.Angle {
	return s1.Angle(deg) * s1.Degree
}

// RotateBy rotates p counter-clockwise by a.
func RotateBy(p r2.Point, a s1.Angle) r2.Point {
	sin, cos := math.Sincos(a.Radians())
	return r2.Point{X: p.X*cos - p.Y*sin, Y: p.X*sin + p.Y*cos}
}

// Pose2D is a position and heading in the world frame.
type Pose2D struct {
	Translation r2.Point
	Heading     s1.Angle
}

// NewPose2D builds a pose with the heading wrapped to (-π, π].
func NewPose2D(x, y float64, heading s1.Angle) Pose2D {
	return Pose2D{Translation: r2.Point{X: x, Y: y}, Heading: heading.Normalized()}
}

// X returns the x coordinate.
func (p Pose2D) X() float64 { return p.Translation.X }

// Y returns the y coordinate.
func (p Pose2D) Y() float64 { return p.Translation.Y }

// WithHeading returns p with its heading replaced.
func (p Pose2D) WithHeading(h s1.Angle) Pose2D {
	return Pose2D{Translation: p.Translation, Heading: h.Normalized()}
}

func (p Pose2D) String() string {
	return fmt.Sprintf("Pose2D(x=%.3f, y=%.3f, heading=%.2f°)", p.X(), p.Y(), p.Heading.Degrees())
}

// ChassisVelocity is a rigid-body velocity command: linear in m/s, angular in rad/s.
type ChassisVelocity struct {
	Vx    float64 `json:"vx" yaml:"vx"`
	Vy    float64 `json:"vy" yaml:"vy"`
	Omega float64 `json:"omega" yaml:"omega"`
}

// FromFieldRelative converts a world-frame command into the robot frame given
// the robot's current heading.
func FromFieldRelative(vx, vy, omega float64, heading s1.Angle) ChassisVelocity {
	v := RotateBy(r2.Point{X: vx, Y: vy}, -heading)
	return ChassisVelocity{Vx: v.X, Vy: v.Y, Omega: omega}
}

// ModuleState is a wheel's speed (m/s) and steering angle.
type ModuleState struct {
	Speed float64
	Angle s1.Angle
}

// Optimize returns an equivalent state that needs at most 90° of steering
// travel from current, reversing the wheel when that is shorter.
func (s ModuleState) Optimize(current s1.Angle) ModuleState {
	delta := (s.Angle - current).Normalized()
	if math.Abs(delta.Radians()) > math.Pi/2 {
		return ModuleState{Speed: -s.Speed, Angle: (s.Angle + math.Pi).Normalized()}
	}
	return s
}

// ModulePosition is a wheel's cumulative travelled distance (m) and steering angle.
type ModulePosition struct {
	Distance float64
	Angle    s1.Angle
}

// Twist2D is a body-frame displacement over one cycle.
type Twist2D struct {
	Dx, Dy float64
	Dtheta s1.Angle
}

// Vec is shorthand for an r2.Point.
func Vec(x, y float64) r2.Point {
	return r2.Point{X: x, Y: y}
}
