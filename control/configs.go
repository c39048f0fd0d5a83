package control

// DefaultPeriodS is the nominal control-cycle period used when a PIDConfig
// leaves PeriodS unset.
const DefaultPeriodS = 0.02

// DefaultWindow is the rolling-average window used by the target filters.
const DefaultWindow = 5

// PIDConfig holds PID controller parameters
type PIDConfig struct {
	Kp      float64 `json:"kp" yaml:"kp"`
	Ki      float64 `json:"ki" yaml:"ki"`
	Kd      float64 `json:"kd" yaml:"kd"`
	PeriodS float64 `json:"period_s,omitempty" yaml:"period_s,omitempty"`

	// IntegralLimit clamps the accumulated integral to ±limit. Zero leaves it unbounded.
	IntegralLimit float64 `json:"integral_limit,omitempty" yaml:"integral_limit,omitempty"`
}

// NewPIDConfig is shorthand for gains at the default period with no integral clamp.
func NewPIDConfig(kp, ki, kd float64) PIDConfig {
	return PIDConfig{Kp: kp, Ki: ki, Kd: kd, PeriodS: DefaultPeriodS}
}

// FilteredPIDConfig pairs a smoothing window with the loop it feeds.
type FilteredPIDConfig struct {
	Window int       `json:"window" yaml:"window"`
	PID    PIDConfig `json:"pid" yaml:"pid"`
}
