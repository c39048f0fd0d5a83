// Package sim provides ideal simulated swerve hardware for the executable's
// -sim mode and for integration tests.
package sim

import (
	"math"
	"sync"

	"github.com/golang/geo/s1"

	"swerve-core/kinematics"
)

// Module tracks its command perfectly: steering snaps to the target angle and
// the wheel runs at the commanded speed until the next Step.
type Module struct {
	maxSpeed float64

	mu        sync.Mutex
	state     kinematics.ModuleState
	distance  float64
	absolute  s1.Angle
	steerDuty float64
}

// NewModule creates a stopped module. Open-loop commands saturate at maxSpeed.
func NewModule(maxSpeed float64) *Module {
	return &Module{maxSpeed: maxSpeed}
}

func (m *Module) SetDesiredState(state kinematics.ModuleState, openLoop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state = state.Optimize(m.state.Angle)
	if openLoop && m.maxSpeed > 0 {
		// duty saturates at 100%
		state.Speed = math.Max(-m.maxSpeed, math.Min(m.maxSpeed, state.Speed))
	}
	m.state = state
}

func (m *Module) State() kinematics.ModuleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Module) Position() kinematics.ModulePosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return kinematics.ModulePosition{Distance: m.distance, Angle: m.state.Angle}
}

// SetAbsolute sets the reading the absolute steering sensor will report.
func (m *Module) SetAbsolute(a s1.Angle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.absolute = a
}

func (m *Module) ResetToAbsolute() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Angle = m.absolute
}

func (m *Module) ZeroEncoders() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.distance = 0
}

func (m *Module) DebugSetDriveSpeed(speed float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Speed = speed * m.maxSpeed
}

func (m *Module) DebugSetSteeringSpeed(speed float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steerDuty = speed
}

// Step integrates wheel travel over dt seconds.
func (m *Module) Step(dt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.distance += m.state.Speed * dt
	if m.steerDuty != 0 {
		// full duty turns one revolution per second
		m.state.Angle = (m.state.Angle + s1.Angle(m.steerDuty*dt*2*math.Pi)).Normalized()
	}
}
