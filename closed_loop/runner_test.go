package main

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swerve-core/config"
	"swerve-core/kinematics"
	"swerve-core/utils"
)

func newSimRunner(t *testing.T, scen Scenario) *Runner {
	t.Helper()
	require.NoError(t, scen.Validate())
	r, err := NewRunner(context.Background(), RunnerConfig{Config: config.Default(), Scenario: scen, Sim: true}, utils.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, r.Close()) })
	return r
}

func runFor(r *Runner, seconds float64) {
	dt := r.cfg.Cycle()
	n := int(math.Round(seconds / dt))
	for i := 0; i < n; i++ {
		r.step(float64(i)*dt, dt)
	}
}

func TestRunnerTeleopForward(t *testing.T) {
	r := newSimRunner(t, Scenario{
		Timing:   ScenarioTiming{DurationS: 1},
		Segments: []ScenarioSegment{{T0: 0, T1: -1, Mode: ModeTeleop, Vx: 1, FieldRelative: true}},
	})
	runFor(r, 1)

	pose := r.drive.Pose()
	assert.InDelta(t, 1.0, pose.X(), 1e-6)
	assert.InDelta(t, 0, pose.Y(), 1e-6)
	assert.InDelta(t, r.platform.Truth().X(), pose.X(), 1e-9)
}

func TestRunnerFollowerBlended(t *testing.T) {
	r := newSimRunner(t, Scenario{
		Timing:   ScenarioTiming{DurationS: 1},
		Segments: []ScenarioSegment{{T0: 0, T1: -1, Mode: ModeFollower, Vy: 0.5}},
	})
	assert.False(t, r.follower.Requirement.Active())

	runFor(r, 1)
	assert.Equal(t, kinematics.ChassisVelocity{Vy: 0.5}, r.latestFollowerSpeeds())
	assert.Equal(t, kinematics.ChassisVelocity{Vy: 0.5}, r.drive.LatestSpeeds())
	assert.InDelta(t, 0.5, r.drive.Pose().Y(), 1e-6)
}

func TestRunnerAimTurnsTowardTarget(t *testing.T) {
	r := newSimRunner(t, Scenario{
		Timing:   ScenarioTiming{DurationS: 3},
		Targets:  ScenarioTargets{Intake: [2]float64{0, 3}},
		Segments: []ScenarioSegment{{T0: 0, T1: -1, Mode: ModeAim, Target: TargetIntake}},
	})
	runFor(r, 3)

	// target sits at +90°; heading should have swung most of the way there
	heading := r.drive.Heading().Degrees()
	assert.Greater(t, heading, 45.0)
	assert.Less(t, heading, 135.0)
}

func TestRunnerApproachClosesDistance(t *testing.T) {
	r := newSimRunner(t, Scenario{
		Timing:   ScenarioTiming{DurationS: 2},
		Targets:  ScenarioTargets{Shoot: [2]float64{5, 0}},
		Segments: []ScenarioSegment{{T0: 0, T1: -1, Mode: ModeApproach}},
	})
	runFor(r, 2)
	assert.Greater(t, r.drive.Pose().X(), 0.5)
}

func TestRunnerApproachEntryDrivesForward(t *testing.T) {
	r := newSimRunner(t, Scenario{
		Timing:   ScenarioTiming{DurationS: 1},
		Targets:  ScenarioTargets{Shoot: [2]float64{5, 0}},
		Segments: []ScenarioSegment{{T0: 0, T1: -1, Mode: ModeApproach}},
	})
	dt := r.cfg.Cycle()
	r.step(0, dt)

	assert.Less(t, r.vision.AutoApproachPower(), 0.0)
	assert.Greater(t, r.drive.LatestSpeeds().Vx, 0.0)
}

func TestRunnerApproachAfterIdleDrivesForward(t *testing.T) {
	r := newSimRunner(t, Scenario{
		Timing:  ScenarioTiming{DurationS: 1},
		Targets: ScenarioTargets{Shoot: [2]float64{5, 0}},
		Segments: []ScenarioSegment{
			{T0: 0, T1: 0.1, Mode: ModeIdle},
			{T0: 0.1, T1: -1, Mode: ModeApproach},
		},
	})
	dt := r.cfg.Cycle()
	for i := 0; i < 100 && r.segment != 1; i++ {
		r.step(float64(i)*dt, dt)
	}

	require.Equal(t, 1, r.segment)
	assert.Greater(t, r.drive.LatestSpeeds().Vx, 0.0)
}

func TestRunnerSegmentResetPose(t *testing.T) {
	r := newSimRunner(t, Scenario{
		Timing: ScenarioTiming{DurationS: 1},
		Segments: []ScenarioSegment{
			{T0: 0, T1: -1, Mode: ModeIdle, ResetPose: &PoseConfig{X: 2, Y: 1, HeadingDeg: 90}},
		},
	})
	runFor(r, 0.1)

	pose := r.drive.Pose()
	assert.InDelta(t, 2, pose.X(), 1e-9)
	assert.InDelta(t, 1, pose.Y(), 1e-9)
	assert.InDelta(t, 90, pose.Heading.Degrees(), 1e-9)
	assert.Equal(t, 0, r.segment)
}

func TestRunnerRunCompletes(t *testing.T) {
	cfg := config.Default()
	cfg.CycleMS = 5
	scen := Scenario{
		Timing:   ScenarioTiming{DurationS: 0.1},
		Segments: []ScenarioSegment{{T0: 0, T1: -1, Mode: ModeTeleop, Vx: 0.5, FieldRelative: true}},
	}
	require.NoError(t, scen.Validate())
	r, err := NewRunner(context.Background(), RunnerConfig{Config: cfg, Scenario: scen, Sim: true}, utils.NewNopLogger())
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx))
	assert.Positive(t, r.cycles)
}
