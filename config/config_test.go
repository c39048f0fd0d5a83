package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 0.02, cfg.Cycle(), 1e-12)
	assert.InDelta(t, 0.4243, cfg.Platform.Radius(), 1e-4)
	assert.Equal(t, 0.5, cfg.Vision.ApproachPower)

	f := cfg.FollowerConfig()
	assert.Equal(t, 4.5, f.MaxModuleSpeed)
	assert.Equal(t, 0.1, f.TranslationPID.Kp)
}

func TestLoadShippedYAML(t *testing.T) {
	cfg, err := Load("swerve.yaml")
	require.NoError(t, err)
	assert.Equal(t, "blue", cfg.Alliance)
	assert.Equal(t, 2.0, cfg.Vision.Intake.PID.Kp)
	assert.Equal(t, 1.25, cfg.Vision.Shoot.PID.Kp)
	// unset period keeps the default
	assert.Equal(t, 0.02, cfg.Vision.Shoot.PID.PeriodS)
	require.NotNil(t, cfg.Follower)
	assert.True(t, cfg.Follower.Replanning.Initial)
	assert.Nil(t, cfg.Telemetry.MQTT)
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	cfg, err := LoadYAML(strings.NewReader("cycle_ms: 10\nplatform:\n  max_speed_mps: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.CycleMS)
	assert.Equal(t, 3.0, cfg.Platform.MaxSpeedMPS)
	assert.Equal(t, 0.6, cfg.Platform.WheelbaseM)
	assert.Equal(t, "vcan0", cfg.CAN.Interface)
}

func TestLoadEmptyYAML(t *testing.T) {
	cfg, err := LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"alliance":"red","telemetry":{"mqtt":{"broker":"localhost","topic_prefix":"bot"}}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "red", cfg.Alliance)
	require.NotNil(t, cfg.Telemetry.MQTT)
	assert.Equal(t, "localhost", cfg.Telemetry.MQTT.Broker)

	_, err = LoadJSON(strings.NewReader(`{"bogus": 1}`))
	assert.Error(t, err)
}

func TestLoadRejectsExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "unsupported extension")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"cycle", func(c *Config) { c.CycleMS = 0 }, "cycle_ms"},
		{"alliance", func(c *Config) { c.Alliance = "green" }, "alliance"},
		{"layout", func(c *Config) { c.Platform.TrackwidthM = 0 }, "layout"},
		{"speed", func(c *Config) { c.Platform.MaxSpeedMPS = -1 }, "max_speed_mps"},
		{"vision window", func(c *Config) { c.Vision.Distance.Window = 0 }, "distance"},
		{"blended", func(c *Config) { c.Blended.AimRateFraction = 2 }, "aim_rate_fraction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
