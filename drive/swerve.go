// Package drive orchestrates the four swerve modules, the gyro and odometry,
// and exposes the accessors an external trajectory follower binds to.
package drive

import (
	"fmt"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
	"github.com/pkg/errors"

	"swerve-core/kinematics"
	"swerve-core/telemetry"
	"swerve-core/utils"
)

// Config holds the platform limits the drive enforces.
type Config struct {
	MaxSpeedMPS      float64 `json:"max_speed_mps" yaml:"max_speed_mps"`
	DriveBaseRadiusM float64 `json:"drive_base_radius_m" yaml:"drive_base_radius_m"`
}

// SwerveDrive owns the modules, the gyro and the odometry estimate.
//
// Periodic must be called exactly once per control cycle. The mutex lets the
// follower binding read and write pose and speeds from another goroutine.
type SwerveDrive struct {
	modules [kinematics.NumModules]Module
	gyro    Gyro
	kin     *kinematics.Kinematics
	cfg     Config
	sink    telemetry.Sink
	log     *utils.Logger

	mu           sync.Mutex
	odometry     *kinematics.Odometry
	latestSpeeds kinematics.ChassisVelocity
}

// New applies the gyro defaults, zeroes its yaw and seeds odometry at the origin.
func New(
	modules [kinematics.NumModules]Module,
	gyro Gyro,
	kin *kinematics.Kinematics,
	cfg Config,
	sink telemetry.Sink,
	log *utils.Logger,
) (*SwerveDrive, error) {
	for i, m := range modules {
		if m == nil {
			return nil, errors.Errorf("module %d is nil", i)
		}
	}
	if gyro == nil {
		return nil, errors.New("gyro is nil")
	}
	if kin == nil {
		return nil, errors.New("kinematics is nil")
	}
	if cfg.MaxSpeedMPS <= 0 {
		return nil, errors.Errorf("invalid max speed %.3f m/s", cfg.MaxSpeedMPS)
	}
	if sink == nil {
		sink = telemetry.Nop{}
	}
	if log == nil {
		log = utils.NewNopLogger()
	}

	s := &SwerveDrive{
		modules: modules,
		gyro:    gyro,
		kin:     kin,
		cfg:     cfg,
		sink:    sink,
		log:     log,
	}

	gyro.ApplyDefaultConfig()
	gyro.SetYaw(0)
	s.odometry = kinematics.NewOdometry(kin, s.GyroYaw(), s.ModulePositions(), kinematics.Pose2D{})

	log.Debug("swerve drive ready: max_speed=%.2f m/s radius=%.3f m modules=%v",
		cfg.MaxSpeedMPS, cfg.DriveBaseRadiusM, kin.Locations())
	return s, nil
}

func (s *SwerveDrive) Name() string { return "swerve" }
func (s *SwerveDrive) Active() bool { return true }

// Config returns the platform limits.
func (s *SwerveDrive) Config() Config { return s.cfg }

// Kinematics returns the module layout transform.
func (s *SwerveDrive) Kinematics() *kinematics.Kinematics { return s.kin }

// Drive commands a translation (m/s) and rotation (rad/s). Field-relative
// translations are rotated into the robot frame using the current heading;
// robot-relative translations have both axes inverted to match the module
// mounting convention.
func (s *SwerveDrive) Drive(translation r2.Point, rotation float64, fieldRelative, openLoop bool) {
	var speeds kinematics.ChassisVelocity
	if fieldRelative {
		speeds = kinematics.FromFieldRelative(translation.X, translation.Y, rotation, s.Heading())
	} else {
		speeds = kinematics.ChassisVelocity{Vx: -translation.X, Vy: -translation.Y, Omega: rotation}
	}
	s.DriveChassisVelocity(speeds, openLoop)
}

// DriveChassisVelocity caches speeds for the follower, converts them to
// module states, desaturates and dispatches them.
func (s *SwerveDrive) DriveChassisVelocity(speeds kinematics.ChassisVelocity, openLoop bool) {
	s.mu.Lock()
	s.latestSpeeds = speeds
	s.mu.Unlock()

	states := s.kin.ToModuleStates(speeds)
	kinematics.Desaturate(states[:], s.cfg.MaxSpeedMPS)
	for i, m := range s.modules {
		m.SetDesiredState(states[i], openLoop)
	}
}

// SetModuleStates sends externally generated states straight to the modules,
// closed loop.
func (s *SwerveDrive) SetModuleStates(states [kinematics.NumModules]kinematics.ModuleState) {
	kinematics.Desaturate(states[:], s.cfg.MaxSpeedMPS)
	for i, m := range s.modules {
		m.SetDesiredState(states[i], false)
	}
}

// LatestSpeeds returns the most recently commanded chassis velocity.
func (s *SwerveDrive) LatestSpeeds() kinematics.ChassisVelocity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestSpeeds
}

// MeasuredSpeeds returns the chassis velocity implied by the modules' reported states.
func (s *SwerveDrive) MeasuredSpeeds() kinematics.ChassisVelocity {
	return s.kin.ToChassisVelocity(s.ModuleStates())
}

func (s *SwerveDrive) ModuleStates() [kinematics.NumModules]kinematics.ModuleState {
	var out [kinematics.NumModules]kinematics.ModuleState
	for i, m := range s.modules {
		out[i] = m.State()
	}
	return out
}

func (s *SwerveDrive) ModulePositions() [kinematics.NumModules]kinematics.ModulePosition {
	var out [kinematics.NumModules]kinematics.ModulePosition
	for i, m := range s.modules {
		out[i] = m.Position()
	}
	return out
}

func (s *SwerveDrive) Pose() kinematics.Pose2D {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.odometry.Pose()
}

// SetPose re-localizes odometry against the current sensor readings.
func (s *SwerveDrive) SetPose(pose kinematics.Pose2D) {
	s.resetOdometry(s.GyroYaw(), func(kinematics.Pose2D) kinematics.Pose2D { return pose })
}

func (s *SwerveDrive) Heading() s1.Angle {
	return s.Pose().Heading
}

// SetHeading keeps the current translation and replaces the heading.
func (s *SwerveDrive) SetHeading(heading s1.Angle) {
	s.resetOdometry(s.GyroYaw(), func(p kinematics.Pose2D) kinematics.Pose2D { return p.WithHeading(heading) })
}

// ZeroHeading makes the current direction heading zero. The gyro faces the
// rear of the platform, so its reading is taken 180° from true zero.
func (s *SwerveDrive) ZeroHeading() {
	flipped := s.GyroYaw() + kinematics.Degrees(180)
	s.resetOdometry(flipped, func(p kinematics.Pose2D) kinematics.Pose2D { return p.WithHeading(0) })
}

// resetOdometry derives the new pose from the current one and applies it
// under a single lock, so a concurrent Periodic cannot land in between.
func (s *SwerveDrive) resetOdometry(gyro s1.Angle, next func(kinematics.Pose2D) kinematics.Pose2D) {
	positions := s.ModulePositions()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.odometry.ResetPosition(gyro, positions, next(s.odometry.Pose()))
}

// GyroYaw returns the sensor yaw negated into the world convention.
func (s *SwerveDrive) GyroYaw() s1.Angle {
	return kinematics.Degrees(-s.gyro.Yaw())
}

func (s *SwerveDrive) ResetModulesToAbsolute() {
	for _, m := range s.modules {
		m.ResetToAbsolute()
	}
}

func (s *SwerveDrive) ZeroEncoders() {
	for _, m := range s.modules {
		m.ZeroEncoders()
	}
}

func (s *SwerveDrive) DebugSetDriveSpeed(module int, speed float64) {
	if module < 0 || module >= len(s.modules) {
		s.log.Warn("debug drive speed: no module %d", module)
		return
	}
	s.modules[module].DebugSetDriveSpeed(speed)
}

func (s *SwerveDrive) DebugSetSteeringSpeed(module int, speed float64) {
	if module < 0 || module >= len(s.modules) {
		s.log.Warn("debug steering speed: no module %d", module)
		return
	}
	s.modules[module].DebugSetSteeringSpeed(speed)
}

// Periodic advances odometry with fresh gyro and module readings and
// publishes the cycle's telemetry.
func (s *SwerveDrive) Periodic() {
	gyro := s.GyroYaw()
	positions := s.ModulePositions()

	s.mu.Lock()
	pose := s.odometry.Update(gyro, positions)
	s.mu.Unlock()

	s.sink.Publish("swerve/pose_x", pose.X())
	s.sink.Publish("swerve/pose_y", pose.Y())
	s.sink.Publish("swerve/heading_deg", pose.Heading.Degrees())
	s.sink.Publish("swerve/gyro_yaw_deg", gyro.Degrees())
	for i, p := range positions {
		st := s.modules[i].State()
		s.sink.Publish(fmt.Sprintf("swerve/mod%d/speed", i), st.Speed)
		s.sink.Publish(fmt.Sprintf("swerve/mod%d/angle_deg", i), st.Angle.Degrees())
		s.sink.Publish(fmt.Sprintf("swerve/mod%d/distance", i), p.Distance)
	}
}
