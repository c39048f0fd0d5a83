package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadShippedScenarios(t *testing.T) {
	for _, name := range []string{"aim_and_approach.json", "square_teleop.yaml"} {
		t.Run(name, func(t *testing.T) {
			scen, err := LoadScenario(filepath.Join("scenarios", name))
			require.NoError(t, err)
			assert.NotEmpty(t, scen.Segments)
			assert.Positive(t, scen.Timing.DurationS)
		})
	}
}

func TestSegmentAt(t *testing.T) {
	scen := Scenario{
		Timing: ScenarioTiming{DurationS: 5},
		Segments: []ScenarioSegment{
			{T0: 0, T1: 1, Mode: ModeTeleop, Vx: 1},
			{T0: 2, T1: -1, Mode: ModeAim},
		},
	}
	require.NoError(t, scen.Validate())

	seg, idx := scen.SegmentAt(0.5)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 1.0, seg.Vx)

	seg, idx = scen.SegmentAt(1.5)
	assert.Equal(t, -1, idx)
	assert.Equal(t, ModeIdle, seg.Mode)

	_, idx = scen.SegmentAt(4.99)
	assert.Equal(t, 1, idx)
	_, idx = scen.SegmentAt(5)
	assert.Equal(t, -1, idx)
}

func TestScenarioValidate(t *testing.T) {
	tests := []struct {
		name string
		scen Scenario
		want string
	}{
		{"duration", Scenario{}, "duration_s"},
		{"mode", Scenario{Timing: ScenarioTiming{DurationS: 1}, Segments: []ScenarioSegment{{T1: 1, Mode: "dance"}}}, "unknown mode"},
		{"target", Scenario{Timing: ScenarioTiming{DurationS: 1}, Segments: []ScenarioSegment{{T1: 1, Target: "goal"}}}, "unknown target"},
		{"order", Scenario{Timing: ScenarioTiming{DurationS: 1}, Segments: []ScenarioSegment{{T0: 1, T1: 0.5}}}, "must be after"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, tt.scen.Validate(), tt.want)
		})
	}
}

func TestValidateDefaultsModeToTeleop(t *testing.T) {
	scen := Scenario{Timing: ScenarioTiming{DurationS: 1}, Segments: []ScenarioSegment{{T1: 1}}}
	require.NoError(t, scen.Validate())
	assert.Equal(t, ModeTeleop, scen.Segments[0].Mode)
}

func TestLoadScenarioErrors(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = LoadScenario(path)
	assert.ErrorContains(t, err, "unmarshal")
}
