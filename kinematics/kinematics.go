package kinematics

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Kinematics maps between chassis velocity and the four module states for a
// fixed wheel layout. It holds no per-cycle state.
type Kinematics struct {
	locations [NumModules]r2.Point

	// inverse maps (vx, vy, ω) to stacked wheel (vx_i, vy_i); forward is its
	// least-squares pseudo-inverse.
	inverse *mat.Dense
	forward *mat.Dense
}

// New builds the transform for wheels at the given body-frame locations.
// It fails when the layout cannot resolve rotation (e.g. coincident wheels).
func New(locations [NumModules]r2.Point) (*Kinematics, error) {
	inv := mat.NewDense(2*NumModules, 3, nil)
	for i, loc := range locations {
		inv.SetRow(2*i, []float64{1, 0, -loc.Y})
		inv.SetRow(2*i+1, []float64{0, 1, loc.X})
	}

	var ata mat.Dense
	ata.Mul(inv.T(), inv)

	var fwd mat.Dense
	if err := fwd.Solve(&ata, inv.T()); err != nil {
		return nil, errors.Wrap(err, "module layout is degenerate")
	}

	return &Kinematics{locations: locations, inverse: inv, forward: &fwd}, nil
}

// NewRectangular builds the transform for a rectangular layout, modules
// ordered front-left, front-right, back-left, back-right.
func NewRectangular(wheelbase, trackwidth float64) (*Kinematics, error) {
	if wheelbase <= 0 || trackwidth <= 0 {
		return nil, errors.Errorf("invalid layout %.3fx%.3f m", wheelbase, trackwidth)
	}
	return New(RectangularLocations(wheelbase, trackwidth))
}

// RectangularLocations returns FL, FR, BL, BR wheel locations for a
// rectangular chassis centred on the origin.
func RectangularLocations(wheelbase, trackwidth float64) [NumModules]r2.Point {
	x, y := wheelbase/2, trackwidth/2
	return [NumModules]r2.Point{
		{X: x, Y: y},
		{X: x, Y: -y},
		{X: -x, Y: y},
		{X: -x, Y: -y},
	}
}

// Locations returns the wheel locations.
func (k *Kinematics) Locations() [NumModules]r2.Point {
	return k.locations
}

// ToModuleStates computes each wheel's speed and angle for a rigid-body velocity.
// A wheel with no motion reports angle zero.
func (k *Kinematics) ToModuleStates(v ChassisVelocity) [NumModules]ModuleState {
	var states [NumModules]ModuleState
	for i, loc := range k.locations {
		vx := v.Vx - v.Omega*loc.Y
		vy := v.Vy + v.Omega*loc.X
		speed := math.Hypot(vx, vy)
		if speed == 0 {
			states[i] = ModuleState{}
			continue
		}
		states[i] = ModuleState{Speed: speed, Angle: s1.Angle(math.Atan2(vy, vx))}
	}
	return states
}

// ToChassisVelocity is the least-squares inverse of ToModuleStates.
func (k *Kinematics) ToChassisVelocity(states [NumModules]ModuleState) ChassisVelocity {
	var wheels [NumModules]r2.Point
	for i, s := range states {
		sin, cos := math.Sincos(s.Angle.Radians())
		wheels[i] = r2.Point{X: s.Speed * cos, Y: s.Speed * sin}
	}
	x := k.solve(wheels)
	return ChassisVelocity{Vx: x[0], Vy: x[1], Omega: x[2]}
}

// ToTwist estimates the body displacement from per-wheel distance deltas.
func (k *Kinematics) ToTwist(deltas [NumModules]ModulePosition) Twist2D {
	var wheels [NumModules]r2.Point
	for i, d := range deltas {
		sin, cos := math.Sincos(d.Angle.Radians())
		wheels[i] = r2.Point{X: d.Distance * cos, Y: d.Distance * sin}
	}
	x := k.solve(wheels)
	return Twist2D{Dx: x[0], Dy: x[1], Dtheta: s1.Angle(x[2])}
}

func (k *Kinematics) solve(wheels [NumModules]r2.Point) [3]float64 {
	b := mat.NewVecDense(2*NumModules, nil)
	for i, w := range wheels {
		b.SetVec(2*i, w.X)
		b.SetVec(2*i+1, w.Y)
	}
	var x mat.VecDense
	x.MulVec(k.forward, b)
	return [3]float64{x.AtVec(0), x.AtVec(1), x.AtVec(2)}
}

// Desaturate scales every speed by maxSpeed/maxObserved when any wheel
// exceeds maxSpeed, keeping the ratios between wheels. Angles are untouched.
func Desaturate(states []ModuleState, maxSpeed float64) {
	var maxObserved float64
	for _, s := range states {
		maxObserved = math.Max(maxObserved, math.Abs(s.Speed))
	}
	if maxObserved <= maxSpeed {
		return
	}
	scale := maxSpeed / maxObserved
	for i := range states {
		states[i].Speed *= scale
	}
}
