package drive

import (
	"strings"

	"github.com/pkg/errors"

	"swerve-core/control"
	"swerve-core/kinematics"
)

// Alliance is the team side, which decides whether paths are mirrored.
type Alliance int

const (
	AllianceUnknown Alliance = iota
	AllianceBlue
	AllianceRed
)

func (a Alliance) String() string {
	switch a {
	case AllianceBlue:
		return "blue"
	case AllianceRed:
		return "red"
	default:
		return "unknown"
	}
}

// ParseAlliance accepts "blue" or "red" in any case. Anything else is unknown.
func ParseAlliance(s string) Alliance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blue":
		return AllianceBlue
	case "red":
		return AllianceRed
	default:
		return AllianceUnknown
	}
}

// AllianceSource reports the current alliance. ok is false when it is not yet known.
type AllianceSource interface {
	Alliance() (a Alliance, ok bool)
}

// FixedAlliance is an AllianceSource that never changes.
type FixedAlliance Alliance

func (f FixedAlliance) Alliance() (Alliance, bool) {
	return Alliance(f), Alliance(f) != AllianceUnknown
}

// ReplanningConfig mirrors the follower's replanning switches.
type ReplanningConfig struct {
	Initial             bool    `json:"initial" yaml:"initial"`
	Dynamic             bool    `json:"dynamic" yaml:"dynamic"`
	TotalErrorThreshold float64 `json:"total_error_threshold_m" yaml:"total_error_threshold_m"`
	ErrorSpikeThreshold float64 `json:"error_spike_threshold_m" yaml:"error_spike_threshold_m"`
}

// FollowerConfig parameterizes the external holonomic path follower.
type FollowerConfig struct {
	TranslationPID   control.PIDConfig `json:"translation_pid" yaml:"translation_pid"`
	RotationPID      control.PIDConfig `json:"rotation_pid" yaml:"rotation_pid"`
	MaxModuleSpeed   float64           `json:"max_module_speed_mps" yaml:"max_module_speed_mps"`
	DriveBaseRadiusM float64           `json:"drive_base_radius_m" yaml:"drive_base_radius_m"`
	Replanning       ReplanningConfig  `json:"replanning" yaml:"replanning"`
}

// DefaultFollowerConfig uses P-only gains of 0.1 on both axes.
func DefaultFollowerConfig(maxModuleSpeed, driveBaseRadius float64) FollowerConfig {
	return FollowerConfig{
		TranslationPID:   control.NewPIDConfig(0.1, 0, 0),
		RotationPID:      control.NewPIDConfig(0.1, 0, 0),
		MaxModuleSpeed:   maxModuleSpeed,
		DriveBaseRadiusM: driveBaseRadius,
		Replanning:       ReplanningConfig{Initial: true, Dynamic: false, TotalErrorThreshold: 1.0, ErrorSpikeThreshold: 0.25},
	}
}

// FollowerBinding is everything a trajectory follower needs from the drive.
type FollowerBinding struct {
	PoseSupplier   func() kinematics.Pose2D
	ResetPose      func(kinematics.Pose2D)
	SpeedsSupplier func() kinematics.ChassisVelocity
	Output         func(kinematics.ChassisVelocity)
	ShouldMirror   func() bool
	Config         FollowerConfig
	Requirement    ControlTarget
}

// FollowerOptions selects how the binding is built.
//
// In blended mode the follower's output goes to Output instead of the drive,
// and the requirement is an InactiveTarget so it never preempts the drive.
type FollowerOptions struct {
	Config  *FollowerConfig
	Blended bool
	Output  func(kinematics.ChassisVelocity)
}

// NewFollowerBinding wires d into a follower binding. A nil Config uses
// DefaultFollowerConfig with the drive's limits.
func NewFollowerBinding(d *SwerveDrive, alliance AllianceSource, opts FollowerOptions) (FollowerBinding, error) {
	if d == nil {
		return FollowerBinding{}, errors.New("follower binding: drive is nil")
	}

	cfg := DefaultFollowerConfig(d.cfg.MaxSpeedMPS, d.cfg.DriveBaseRadiusM)
	if opts.Config != nil {
		cfg = *opts.Config
	}

	b := FollowerBinding{
		PoseSupplier:   d.Pose,
		ResetPose:      d.SetPose,
		SpeedsSupplier: d.LatestSpeeds,
		ShouldMirror:   MirrorPredicate(alliance),
		Config:         cfg,
	}

	if opts.Blended {
		if opts.Output == nil {
			return FollowerBinding{}, errors.New("follower binding: blended mode needs an output")
		}
		b.Output = opts.Output
		b.Requirement = InactiveTarget{}
	} else {
		b.Output = func(v kinematics.ChassisVelocity) { d.DriveChassisVelocity(v, false) }
		b.Requirement = d
	}

	if err := b.Validate(); err != nil {
		return FollowerBinding{}, err
	}
	return b, nil
}

// MirrorPredicate mirrors only when the alliance is known to be red.
func MirrorPredicate(src AllianceSource) func() bool {
	return func() bool {
		if src == nil {
			return false
		}
		a, ok := src.Alliance()
		return ok && a == AllianceRed
	}
}

// Validate checks that every callback is set and the limits are usable.
func (b FollowerBinding) Validate() error {
	switch {
	case b.PoseSupplier == nil:
		return errors.New("follower binding: missing pose supplier")
	case b.ResetPose == nil:
		return errors.New("follower binding: missing pose reset")
	case b.SpeedsSupplier == nil:
		return errors.New("follower binding: missing speeds supplier")
	case b.Output == nil:
		return errors.New("follower binding: missing output")
	case b.ShouldMirror == nil:
		return errors.New("follower binding: missing mirror predicate")
	case b.Requirement == nil:
		return errors.New("follower binding: missing requirement")
	}
	if b.Config.MaxModuleSpeed <= 0 {
		return errors.Errorf("follower binding: max module speed %.3f must be positive", b.Config.MaxModuleSpeed)
	}
	if b.Config.DriveBaseRadiusM <= 0 {
		return errors.Errorf("follower binding: drive base radius %.3f must be positive", b.Config.DriveBaseRadiusM)
	}
	return nil
}
