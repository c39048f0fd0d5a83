package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"swerve-core/kinematics"
)

// Segment modes.
const (
	ModeIdle     = "idle"
	ModeTeleop   = "teleop"
	ModeFollower = "follower"
	ModeAim      = "aim"
	ModeApproach = "approach"
)

// Vision targets a segment can aim at.
const (
	TargetIntake = "intake"
	TargetShoot  = "shoot"
)

// Scenario is a timed script of drive commands.
type Scenario struct {
	Meta     ScenarioMeta      `json:"meta" yaml:"meta"`
	Timing   ScenarioTiming    `json:"timing" yaml:"timing"`
	Targets  ScenarioTargets   `json:"targets" yaml:"targets"`
	Segments []ScenarioSegment `json:"segments" yaml:"segments"`
}

type ScenarioMeta struct {
	Name        string `json:"name" yaml:"name"`
	Version     int    `json:"version" yaml:"version"`
	Description string `json:"description" yaml:"description"`
}

type ScenarioTiming struct {
	DurationS float64 `json:"duration_s" yaml:"duration_s"`
}

// ScenarioTargets places the simulated vision targets on the field, metres.
type ScenarioTargets struct {
	Intake [2]float64 `json:"intake" yaml:"intake"`
	Shoot  [2]float64 `json:"shoot" yaml:"shoot"`
}

// ScenarioSegment holds one command over [T0, T1). T1 < 0 runs to the end.
type ScenarioSegment struct {
	T0   float64 `json:"t0" yaml:"t0"`
	T1   float64 `json:"t1" yaml:"t1"`
	Mode string  `json:"mode" yaml:"mode"`

	Vx    float64 `json:"vx_mps,omitempty" yaml:"vx_mps,omitempty"`
	Vy    float64 `json:"vy_mps,omitempty" yaml:"vy_mps,omitempty"`
	Omega float64 `json:"omega_rad_s,omitempty" yaml:"omega_rad_s,omitempty"`

	FieldRelative bool   `json:"field_relative,omitempty" yaml:"field_relative,omitempty"`
	OpenLoop      bool   `json:"open_loop,omitempty" yaml:"open_loop,omitempty"`
	Target        string `json:"target,omitempty" yaml:"target,omitempty"`

	// Applied once when the segment starts.
	ZeroHeading bool        `json:"zero_heading,omitempty" yaml:"zero_heading,omitempty"`
	ResetPose   *PoseConfig `json:"reset_pose,omitempty" yaml:"reset_pose,omitempty"`

	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`
}

type PoseConfig struct {
	X          float64 `json:"x" yaml:"x"`
	Y          float64 `json:"y" yaml:"y"`
	HeadingDeg float64 `json:"heading_deg" yaml:"heading_deg"`
}

func (p PoseConfig) Pose() kinematics.Pose2D {
	return kinematics.NewPose2D(p.X, p.Y, kinematics.Degrees(p.HeadingDeg))
}

// Translation is the segment's translation command.
func (s ScenarioSegment) Translation() kinematics.ChassisVelocity {
	return kinematics.ChassisVelocity{Vx: s.Vx, Vy: s.Vy, Omega: s.Omega}
}

// LoadScenario reads a JSON or YAML scenario, chosen by extension.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, errors.Wrap(err, "read scenario")
	}

	var scen Scenario
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &scen)
	default:
		err = json.Unmarshal(data, &scen)
	}
	if err != nil {
		return Scenario{}, errors.Wrap(err, "unmarshal scenario")
	}

	if err := scen.Validate(); err != nil {
		return Scenario{}, err
	}
	return scen, nil
}

func (s *Scenario) Validate() error {
	if s.Timing.DurationS <= 0 {
		return errors.Errorf("invalid duration_s: %f", s.Timing.DurationS)
	}
	for i := range s.Segments {
		seg := &s.Segments[i]
		if seg.Mode == "" {
			seg.Mode = ModeTeleop
		}
		switch seg.Mode {
		case ModeIdle, ModeTeleop, ModeFollower, ModeAim, ModeApproach:
		default:
			return errors.Errorf("segment %d: unknown mode %q", i, seg.Mode)
		}
		switch seg.Target {
		case "", TargetIntake, TargetShoot:
		default:
			return errors.Errorf("segment %d: unknown target %q", i, seg.Target)
		}
		if seg.T1 >= 0 && seg.T1 <= seg.T0 {
			return errors.Errorf("segment %d: t1 %.3f must be after t0 %.3f", i, seg.T1, seg.T0)
		}
	}
	return nil
}

// SegmentAt returns the first segment covering t. Outside every segment the
// platform idles and index is -1.
func (s *Scenario) SegmentAt(t float64) (ScenarioSegment, int) {
	for i, seg := range s.Segments {
		t1 := seg.T1
		if t1 < 0 {
			t1 = s.Timing.DurationS
		}
		if t >= seg.T0 && t < t1 {
			return seg, i
		}
	}
	return ScenarioSegment{Mode: ModeIdle}, -1
}
