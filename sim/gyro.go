package sim

import (
	"sync"

	"github.com/golang/geo/s1"
)

// Gyro reports yaw in degrees with the sign opposite to the world
// convention, like the mounted sensor.
type Gyro struct {
	mu       sync.Mutex
	yaw      float64
	defaults int
}

func NewGyro() *Gyro { return &Gyro{} }

func (g *Gyro) Yaw() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.yaw
}

func (g *Gyro) SetYaw(deg float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.yaw = deg
}

func (g *Gyro) ApplyDefaultConfig() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.defaults++
}

// Rotate turns the platform by a world-frame angle.
func (g *Gyro) Rotate(delta s1.Angle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.yaw -= delta.Degrees()
}
