package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPIDProportionalOnly(t *testing.T) {
	pid := NewPIDController(NewPIDConfig(1, 0, 0))

	// e = setpoint - measurement, so a measurement of 3 against 0 yields -3.
	assert.InDelta(t, -3.0, pid.Calculate(3, 0), 1e-9)
	assert.InDelta(t, -1.0, pid.Calculate(1, 0), 1e-9)
}

func TestPIDFirstCallHasNoDerivative(t *testing.T) {
	pid := NewPIDController(NewPIDConfig(0, 0, 1))

	assert.InDelta(t, 0.0, pid.Calculate(5, 0), 1e-9)

	// (e1 - e0) / dt = (-4 - -5) / 0.02
	assert.InDelta(t, 50.0, pid.Calculate(4, 0), 1e-9)
}

func TestPIDIntegralAccumulates(t *testing.T) {
	pid := NewPIDController(PIDConfig{Ki: 1, PeriodS: 0.5})

	assert.InDelta(t, 1.0, pid.Calculate(0, 2), 1e-9)
	assert.InDelta(t, 2.0, pid.Calculate(0, 2), 1e-9)
	assert.InDelta(t, 3.0, pid.Calculate(0, 2), 1e-9)
	assert.InDelta(t, 3.0, pid.Integral(), 1e-9)
}

func TestPIDIntegralUnboundedByDefault(t *testing.T) {
	pid := NewPIDController(NewPIDConfig(0, 1, 0))
	for i := 0; i < 10_000; i++ {
		pid.Calculate(0, 1)
	}
	assert.InDelta(t, 200.0, pid.Integral(), 1e-6)
}

func TestPIDIntegralLimit(t *testing.T) {
	pid := NewPIDController(PIDConfig{Ki: 1, PeriodS: 1, IntegralLimit: 2.5})
	for i := 0; i < 10; i++ {
		pid.Calculate(0, 1)
	}
	assert.InDelta(t, 2.5, pid.Integral(), 1e-9)

	for i := 0; i < 10; i++ {
		pid.Calculate(1, 0)
	}
	assert.InDelta(t, -2.5, pid.Integral(), 1e-9)
}

func TestPIDReset(t *testing.T) {
	pid := NewPIDController(NewPIDConfig(1, 1, 1))
	pid.Calculate(3, 0)
	pid.Calculate(2, 0)
	pid.Reset()

	fresh := NewPIDController(NewPIDConfig(1, 1, 1))
	assert.InDelta(t, fresh.Calculate(7, 1), pid.Calculate(7, 1), 1e-12)
	assert.Equal(t, fresh.Diagnostics(), pid.Diagnostics())
}

func TestPIDHistoryDiverges(t *testing.T) {
	a := NewPIDController(NewPIDConfig(1, 0.5, 0.1))
	b := NewPIDController(NewPIDConfig(1, 0.5, 0.1))

	a.Calculate(10, 0)
	assert.NotEqual(t, a.Calculate(1, 0), b.Calculate(1, 0))
}

func TestPIDDiagnostics(t *testing.T) {
	pid := NewPIDController(PIDConfig{Kp: 2, Ki: 1, Kd: 1, PeriodS: 1})
	pid.Calculate(1, 0)
	out := pid.Calculate(3, 0)

	diag := pid.Diagnostics()
	assert.InDelta(t, -3.0, diag.Error, 1e-9)
	assert.InDelta(t, -4.0, diag.Integral, 1e-9)
	assert.InDelta(t, -6.0, diag.P, 1e-9)
	assert.InDelta(t, -4.0, diag.I, 1e-9)
	assert.InDelta(t, -2.0, diag.D, 1e-9)
	assert.InDelta(t, out, diag.P+diag.I+diag.D, 1e-9)
}

func TestPIDDefaultPeriod(t *testing.T) {
	pid := NewPIDController(PIDConfig{Kp: 1})
	assert.Equal(t, DefaultPeriodS, pid.Config().PeriodS)
}
