package control

// PIDController implements a discrete single-axis PID controller.
//
// The integral accumulates on every call. With IntegralLimit left at zero it is
// unbounded, so callers running long with a persistent error should Reset it
// between operating modes.
type PIDController struct {
	cfg PIDConfig

	// State
	integral    float64
	prevError   float64
	initialized bool

	// Last computed terms, kept for diagnostics
	lastP, lastI, lastD float64
}

// NewPIDController creates a new PID controller with given configuration
func NewPIDController(cfg PIDConfig) *PIDController {
	if cfg.PeriodS <= 0 {
		cfg.PeriodS = DefaultPeriodS
	}
	return &PIDController{
		cfg:         cfg,
		initialized: false,
	}
}

// Reset clears the PID state
func (pid *PIDController) Reset() {
	pid.integral = 0.0
	pid.prevError = 0.0
	pid.initialized = false
	pid.lastP, pid.lastI, pid.lastD = 0, 0, 0
}

// Calculate returns the control output for one cycle.
//
// The error is setpoint - measurement. The first call after construction or
// Reset has no previous error, so its derivative term is zero.
func (pid *PIDController) Calculate(measurement, setpoint float64) float64 {
	dt := pid.cfg.PeriodS
	err := setpoint - measurement

	p := pid.cfg.Kp * err

	pid.integral += err * dt
	if limit := pid.cfg.IntegralLimit; limit > 0 {
		pid.integral = ClampFloat(pid.integral, -limit, limit)
	}
	i := pid.cfg.Ki * pid.integral

	var d float64
	if pid.initialized {
		d = pid.cfg.Kd * (err - pid.prevError) / dt
	}

	pid.prevError = err
	pid.initialized = true
	pid.lastP, pid.lastI, pid.lastD = p, i, d

	return p + i + d
}

// Diagnostics returns current PID state for logging/debugging
func (pid *PIDController) Diagnostics() PIDDiagnostics {
	return PIDDiagnostics{
		Error:    pid.prevError,
		Integral: pid.integral,
		P:        pid.lastP,
		I:        pid.lastI,
		D:        pid.lastD,
	}
}

// PIDDiagnostics contains PID internal state for monitoring
type PIDDiagnostics struct {
	Error    float64
	Integral float64
	P        float64
	I        float64
	D        float64
}

// Config returns the gains the controller was built with.
func (pid *PIDController) Config() PIDConfig {
	return pid.cfg
}

// Error returns the most recent error
func (pid *PIDController) Error() float64 {
	return pid.prevError
}

// Integral returns the current accumulated integral
func (pid *PIDController) Integral() float64 {
	return pid.integral
}
