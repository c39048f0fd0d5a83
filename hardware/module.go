package hardware

import (
	"fmt"
	"sync"

	"swerve-core/control"
	"swerve-core/kinematics"
	"swerve-core/utils"
)

// Command modes carried in the MODULE<n>_CMD mode field.
const (
	ModeState = iota
	ModeDebug
	ModeResetAbsolute
	ModeZeroEncoders
)

// CANModule drives one swerve module controller over CAN. Feedback frames
// update a cache; reads never touch the bus.
type CANModule struct {
	index int
	bus   *Bus
	cmd   string
	log   *utils.Logger

	mu        sync.Mutex
	state     kinematics.ModuleState
	position  kinematics.ModulePosition
	driveDuty float64
	steerDuty float64
}

// NewCANModule binds module index to MODULE<index>_CMD and MODULE<index>_FB.
func NewCANModule(bus *Bus, index int, log *utils.Logger) (*CANModule, error) {
	if log == nil {
		log = utils.NewNopLogger()
	}
	m := &CANModule{
		index: index,
		bus:   bus,
		cmd:   fmt.Sprintf("MODULE%d_CMD", index),
		log:   log.With("module", index),
	}
	if err := bus.canMap.Require(m.cmd); err != nil {
		return nil, err
	}
	if err := bus.Handle(fmt.Sprintf("MODULE%d_FB", index), m.onFeedback); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *CANModule) onFeedback(v map[string]float64) {
	angle := kinematics.Degrees(v["angle_deg"])
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = kinematics.ModuleState{Speed: v["speed_mps"], Angle: angle}
	m.position = kinematics.ModulePosition{Distance: v["distance_m"], Angle: angle}
}

// SetDesiredState optimizes the target against the last reported angle
// before sending it.
func (m *CANModule) SetDesiredState(state kinematics.ModuleState, openLoop bool) {
	m.mu.Lock()
	current := m.state.Angle
	m.mu.Unlock()

	state = state.Optimize(current)
	m.bus.Send(m.cmd, map[string]float64{
		"speed_mps": state.Speed,
		"angle_deg": state.Angle.Normalized().Degrees(),
		"open_loop": control.BoolToFloat(openLoop),
		"mode":      ModeState,
	})
}

func (m *CANModule) State() kinematics.ModuleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *CANModule) Position() kinematics.ModulePosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *CANModule) ResetToAbsolute() {
	m.log.Debug("reset steering to absolute")
	m.bus.Send(m.cmd, map[string]float64{"mode": ModeResetAbsolute})
}

// ZeroEncoders also clears the cached distance so odometry sees zero before
// the next feedback frame.
func (m *CANModule) ZeroEncoders() {
	m.mu.Lock()
	m.position.Distance = 0
	m.mu.Unlock()
	m.bus.Send(m.cmd, map[string]float64{"mode": ModeZeroEncoders})
}

func (m *CANModule) DebugSetDriveSpeed(speed float64) {
	m.mu.Lock()
	m.driveDuty = control.ClampFloat(speed, -1, 1)
	m.mu.Unlock()
	m.sendDebug()
}

func (m *CANModule) DebugSetSteeringSpeed(speed float64) {
	m.mu.Lock()
	m.steerDuty = control.ClampFloat(speed, -1, 1)
	m.mu.Unlock()
	m.sendDebug()
}

func (m *CANModule) sendDebug() {
	m.mu.Lock()
	values := map[string]float64{
		"mode":       ModeDebug,
		"drive_duty": m.driveDuty,
		"steer_duty": m.steerDuty,
	}
	m.mu.Unlock()
	m.bus.Send(m.cmd, values)
}
