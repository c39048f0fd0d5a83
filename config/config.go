// Package config loads the drive controller configuration from YAML or JSON.
package config

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"swerve-core/drive"
	"swerve-core/telemetry"
	"swerve-core/vision"
)

// PlatformConfig describes the chassis.
type PlatformConfig struct {
	WheelbaseM         float64 `json:"wheelbase_m" yaml:"wheelbase_m"`
	TrackwidthM        float64 `json:"trackwidth_m" yaml:"trackwidth_m"`
	MaxSpeedMPS        float64 `json:"max_speed_mps" yaml:"max_speed_mps"`
	MaxAngularRateRadS float64 `json:"max_angular_rate_rad_s" yaml:"max_angular_rate_rad_s"`
	// DriveBaseRadiusM is the centre-to-furthest-module distance. Zero derives it from the layout.
	DriveBaseRadiusM float64 `json:"drive_base_radius_m" yaml:"drive_base_radius_m"`
}

// Radius returns DriveBaseRadiusM or the half-diagonal of the layout.
func (p PlatformConfig) Radius() float64 {
	if p.DriveBaseRadiusM > 0 {
		return p.DriveBaseRadiusM
	}
	return math.Hypot(p.WheelbaseM/2, p.TrackwidthM/2)
}

// Drive returns the limits SwerveDrive enforces.
func (p PlatformConfig) Drive() drive.Config {
	return drive.Config{MaxSpeedMPS: p.MaxSpeedMPS, DriveBaseRadiusM: p.Radius()}
}

type CANConfig struct {
	Interface string `json:"interface" yaml:"interface"`
	MapPath   string `json:"map_path" yaml:"map_path"`
}

type TelemetryConfig struct {
	// MQTT is optional; without it values go to the log at trace level.
	MQTT *telemetry.MQTTConfig `json:"mqtt,omitempty" yaml:"mqtt,omitempty"`
}

// BlendedConfig scales vision powers, clamped to [-1, 1], into velocity commands.
type BlendedConfig struct {
	AimRateFraction       float64 `json:"aim_rate_fraction" yaml:"aim_rate_fraction"`
	ApproachSpeedFraction float64 `json:"approach_speed_fraction" yaml:"approach_speed_fraction"`
}

type Config struct {
	CycleMS  int    `json:"cycle_ms" yaml:"cycle_ms"`
	Alliance string `json:"alliance" yaml:"alliance"`

	Platform  PlatformConfig        `json:"platform" yaml:"platform"`
	Vision    vision.Config         `json:"vision" yaml:"vision"`
	Follower  *drive.FollowerConfig `json:"follower,omitempty" yaml:"follower,omitempty"`
	CAN       CANConfig             `json:"can" yaml:"can"`
	Telemetry TelemetryConfig       `json:"telemetry" yaml:"telemetry"`
	Blended   BlendedConfig         `json:"blended" yaml:"blended"`
}

// Default returns a runnable configuration for the reference chassis.
func Default() Config {
	platform := PlatformConfig{
		WheelbaseM:  0.6,
		TrackwidthM: 0.6,
		MaxSpeedMPS: 4.5,
	}
	platform.MaxAngularRateRadS = platform.MaxSpeedMPS / platform.Radius()

	return Config{
		CycleMS:  20,
		Platform: platform,
		Vision:   vision.DefaultConfig(),
		CAN: CANConfig{
			Interface: "vcan0",
			MapPath:   "config/can/swerve_can_map.csv",
		},
		Blended: BlendedConfig{
			AimRateFraction:       0.5,
			ApproachSpeedFraction: 0.3,
		},
	}
}

// Load reads path as YAML (.yaml, .yml) or JSON (.json) over Default().
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "open config")
	}
	defer f.Close()

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cfg, err = LoadYAML(f)
	case ".json":
		cfg, err = LoadJSON(f)
	default:
		return Config{}, errors.Errorf("config %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return Config{}, errors.Wrapf(err, "parse %s", path)
	}
	return cfg, nil
}

// LoadYAML decodes YAML over Default() and validates the result.
func LoadYAML(r io.Reader) (Config, error) {
	cfg := Default()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadJSON decodes JSON over Default() and validates the result.
func LoadJSON(r io.Reader) (Config, error) {
	cfg := Default()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.CycleMS <= 0 {
		return errors.Errorf("cycle_ms must be positive, got %d", c.CycleMS)
	}
	if c.Alliance != "" && drive.ParseAlliance(c.Alliance) == drive.AllianceUnknown {
		return errors.Errorf("alliance must be blue or red, got %q", c.Alliance)
	}
	p := c.Platform
	if p.WheelbaseM <= 0 || p.TrackwidthM <= 0 {
		return errors.Errorf("platform layout %.3fx%.3f m is invalid", p.WheelbaseM, p.TrackwidthM)
	}
	if p.MaxSpeedMPS <= 0 {
		return errors.Errorf("platform max_speed_mps must be positive, got %.3f", p.MaxSpeedMPS)
	}
	if p.MaxAngularRateRadS <= 0 {
		return errors.Errorf("platform max_angular_rate_rad_s must be positive, got %.3f", p.MaxAngularRateRadS)
	}
	if err := c.Vision.Validate(); err != nil {
		return err
	}
	if f := c.Follower; f != nil && (f.MaxModuleSpeed <= 0 || f.DriveBaseRadiusM <= 0) {
		return errors.New("follower max_module_speed_mps and drive_base_radius_m must be positive")
	}
	if m := c.Telemetry.MQTT; m != nil && m.Broker == "" {
		return errors.New("telemetry.mqtt.broker must be set")
	}
	for name, v := range map[string]float64{
		"aim_rate_fraction":       c.Blended.AimRateFraction,
		"approach_speed_fraction": c.Blended.ApproachSpeedFraction,
	} {
		if v < 0 || v > 1 {
			return errors.Errorf("blended %s must be within [0, 1], got %.3f", name, v)
		}
	}
	return nil
}

// Cycle returns the control period in seconds.
func (c Config) Cycle() float64 {
	return float64(c.CycleMS) / 1000
}

// FollowerConfig returns the configured follower parameters or the defaults
// for this platform.
func (c Config) FollowerConfig() drive.FollowerConfig {
	if c.Follower != nil {
		return *c.Follower
	}
	return drive.DefaultFollowerConfig(c.Platform.MaxSpeedMPS, c.Platform.Radius())
}
