// Package vision turns camera target observations into drive power commands.
package vision

import (
	"github.com/pkg/errors"

	"swerve-core/control"
	"swerve-core/telemetry"
	"swerve-core/utils"
)

// DefaultApproachPower is the forward power reported before the first cycle.
const DefaultApproachPower = 0.5

// TargetSensor is a camera pipeline reporting the current target.
// Implementations return their last known values and never block.
type TargetSensor interface {
	// YawToTarget is the horizontal angle to the target, degrees.
	YawToTarget() float64
	// DistanceToTarget is the range to the target, metres.
	DistanceToTarget() float64
}

// Config holds the three filtered loops and the sensor endpoints.
type Config struct {
	IntakeSensor string `json:"intake_sensor" yaml:"intake_sensor"`
	ShootSensor  string `json:"shoot_sensor" yaml:"shoot_sensor"`

	Intake   control.FilteredPIDConfig `json:"intake" yaml:"intake"`
	Shoot    control.FilteredPIDConfig `json:"shoot" yaml:"shoot"`
	Distance control.FilteredPIDConfig `json:"distance" yaml:"distance"`

	ApproachPower float64 `json:"approach_power" yaml:"approach_power"`
}

// DefaultConfig returns the tuned platform gains.
func DefaultConfig() Config {
	return Config{
		IntakeSensor:  "127.0.0.1:5801",
		ShootSensor:   "127.0.0.1:5802",
		Intake:        control.FilteredPIDConfig{Window: control.DefaultWindow, PID: control.NewPIDConfig(2.0, 0.01, 0.2)},
		Shoot:         control.FilteredPIDConfig{Window: control.DefaultWindow, PID: control.NewPIDConfig(1.25, 0.01, 0.2)},
		Distance:      control.FilteredPIDConfig{Window: control.DefaultWindow, PID: control.NewPIDConfig(1, 0, 0)},
		ApproachPower: DefaultApproachPower,
	}
}

// Validate rejects windows below one sample.
func (c Config) Validate() error {
	for name, f := range map[string]control.FilteredPIDConfig{
		"intake": c.Intake, "shoot": c.Shoot, "distance": c.Distance,
	} {
		if f.Window < 1 {
			return errors.Errorf("vision %s: window %d must be at least 1", name, f.Window)
		}
	}
	return nil
}

type filteredLoop struct {
	avg *control.RollingAverage
	pid *control.PIDController
}

func newFilteredLoop(cfg control.FilteredPIDConfig) filteredLoop {
	return filteredLoop{
		avg: control.NewRollingAverage(cfg.Window),
		pid: control.NewPIDController(cfg.PID),
	}
}

// step filters the sample and drives the mean toward zero. Non-finite
// samples are skipped so the window and the integral stay usable.
func (f filteredLoop) step(sample float64) float64 {
	if finite(sample) {
		f.avg.AddInput(sample)
	}
	return f.pid.Calculate(f.avg.Output(), 0)
}

func (f filteredLoop) reset() {
	f.avg.Reset()
	f.pid.Reset()
}

// Controller runs the intake aim, shoot aim and approach loops.
//
// Outputs are unclamped; the behavior layer limits them.
type Controller struct {
	intake TargetSensor
	shoot  TargetSensor

	intakeLoop   filteredLoop
	shootLoop    filteredLoop
	distanceLoop filteredLoop

	cfg  Config
	sink telemetry.Sink
	log  *utils.Logger

	aimRotationPower  float64
	angleToShootAngle float64
	autoApproachPower float64
}

// NewController builds a controller reading from the two sensors.
func NewController(intake, shoot TargetSensor, cfg Config, sink telemetry.Sink, log *utils.Logger) (*Controller, error) {
	if intake == nil || shoot == nil {
		return nil, errors.New("vision controller needs both target sensors")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = telemetry.Nop{}
	}
	if log == nil {
		log = utils.NewNopLogger()
	}
	c := &Controller{
		intake:       intake,
		shoot:        shoot,
		intakeLoop:   newFilteredLoop(cfg.Intake),
		shootLoop:    newFilteredLoop(cfg.Shoot),
		distanceLoop: newFilteredLoop(cfg.Distance),
		cfg:          cfg,
		sink:         sink,
		log:          log,
	}
	c.autoApproachPower = cfg.ApproachPower
	return c, nil
}

// Periodic samples both sensors once and updates all three outputs.
func (c *Controller) Periodic() {
	c.aimRotationPower = c.intakeLoop.step(c.intake.YawToTarget())
	c.angleToShootAngle = c.shootLoop.step(c.shoot.YawToTarget())
	c.autoApproachPower = c.distanceLoop.step(c.shoot.DistanceToTarget())

	c.sink.Publish("intakePID", c.aimRotationPower)
	c.sink.Publish("shootPID", c.angleToShootAngle)
	c.sink.Publish("shootDistance", c.autoApproachPower)
	c.sink.Publish("vision/intake_yaw_stddev", c.intakeLoop.avg.StdDev())
	c.sink.Publish("vision/shoot_yaw_stddev", c.shootLoop.avg.StdDev())
	d := c.shootLoop.pid.Diagnostics()
	c.sink.Publish("vision/shoot_p", d.P)
	c.sink.Publish("vision/shoot_i", d.I)
	c.sink.Publish("vision/shoot_d", d.D)

	c.log.Trace("vision: aim=%.3f shoot=%.3f approach=%.3f", c.aimRotationPower, c.angleToShootAngle, c.autoApproachPower)
}

// AimRotationPower is the rotation command that centres the intake target.
func (c *Controller) AimRotationPower() float64 { return c.aimRotationPower }

// AngleToShootAngle is the rotation command that centres the shoot target.
func (c *Controller) AngleToShootAngle() float64 { return c.angleToShootAngle }

// AutoApproachPower is the forward command that closes range to the shoot target.
func (c *Controller) AutoApproachPower() float64 { return c.autoApproachPower }

// Reset clears the filters and loop state and restores the default approach power.
func (c *Controller) Reset() {
	c.intakeLoop.reset()
	c.shootLoop.reset()
	c.distanceLoop.reset()
	c.aimRotationPower = 0
	c.angleToShootAngle = 0
	c.autoApproachPower = c.cfg.ApproachPower
}
