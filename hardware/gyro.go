package hardware

import (
	"sync"

	"swerve-core/utils"
)

const (
	gyroFeedback = "GYRO_FB"
	gyroCommand  = "GYRO_CMD"
)

// CANGyro reports yaw from GYRO_FB and configures the sensor with GYRO_CMD.
type CANGyro struct {
	bus *Bus
	log *utils.Logger

	mu  sync.Mutex
	yaw float64
}

func NewCANGyro(bus *Bus, log *utils.Logger) (*CANGyro, error) {
	if log == nil {
		log = utils.NewNopLogger()
	}
	g := &CANGyro{bus: bus, log: log}
	if err := bus.canMap.Require(gyroCommand); err != nil {
		return nil, err
	}
	if err := bus.Handle(gyroFeedback, g.onFeedback); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *CANGyro) onFeedback(v map[string]float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.yaw = v["yaw_deg"]
}

// Yaw returns the last reported yaw in degrees, sensor convention.
func (g *CANGyro) Yaw() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.yaw
}

// SetYaw updates the cache immediately; the sensor confirms on its next frame.
func (g *CANGyro) SetYaw(deg float64) {
	g.mu.Lock()
	g.yaw = deg
	g.mu.Unlock()
	g.bus.Send(gyroCommand, map[string]float64{"set_yaw": 1, "set_yaw_deg": deg})
}

func (g *CANGyro) ApplyDefaultConfig() {
	g.log.Info("gyro: applying default configuration")
	g.bus.Send(gyroCommand, map[string]float64{"apply_defaults": 1})
}
