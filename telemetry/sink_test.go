package telemetry

import (
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swerve-core/utils"
)

type panicSink struct{}

func (panicSink) Publish(string, float64) { panic("backend down") }

func TestRecorderKeepsLatest(t *testing.T) {
	r := NewRecorder()
	r.Publish("a", 1)
	r.Publish("a", 2)
	r.Publish("b", 3)

	v, ok := r.Value("a")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, 2, r.Count("a"))
	assert.Equal(t, []string{"a", "b"}, r.Names())

	_, ok = r.Value("missing")
	assert.False(t, ok)
}

func TestMultiFansOut(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	Multi{a, b, Nop{}}.Publish("x", 4)

	va, _ := a.Value("x")
	vb, _ := b.Value("x")
	assert.Equal(t, 4.0, va)
	assert.Equal(t, 4.0, vb)
}

func TestSafeRecoversPanics(t *testing.T) {
	rec := NewRecorder()
	s := Safe(Multi{rec, panicSink{}}, utils.NewNopLogger())

	assert.NotPanics(t, func() { s.Publish("x", 1) })
	v, _ := rec.Value("x")
	assert.Equal(t, 1.0, v)

	assert.NotPanics(t, func() { Safe(nil, nil).Publish("y", 2) })
}

func TestMQTTConfigBrokerURL(t *testing.T) {
	assert.Equal(t, "tcp://localhost:1883", MQTTConfig{Broker: "localhost", Port: 1883}.BrokerURL())
	assert.Equal(t, "tls://broker:8883", MQTTConfig{Broker: "broker", Port: 8883, UseTLS: true}.BrokerURL())
}

func TestMQTTSinkTopic(t *testing.T) {
	s := &MQTTSink{prefix: "robot/swerve"}
	assert.Equal(t, "robot/swerve/pose_x", s.Topic("pose_x"))

	bare := &MQTTSink{}
	assert.Equal(t, "pose_x", bare.Topic("pose_x"))
}

func TestNewMQTTSinkRequiresBroker(t *testing.T) {
	_, err := NewMQTTSink(MQTTConfig{}, utils.NewNopLogger())
	assert.Error(t, err)
}

func TestRouteClientLogs(t *testing.T) {
	prevErr, prevCrit := mqtt.ERROR, mqtt.CRITICAL
	t.Cleanup(func() { mqtt.ERROR, mqtt.CRITICAL = prevErr, prevCrit })
	mqtt.ERROR, mqtt.CRITICAL = mqtt.NOOPLogger{}, mqtt.NOOPLogger{}

	_, err := NewMQTTSink(MQTTConfig{}, utils.NewNopLogger())
	require.Error(t, err)
	assert.Equal(t, mqtt.NOOPLogger{}, mqtt.ERROR)

	require.NoError(t, RouteClientLogs(utils.NewNopLogger()))
	assert.NotEqual(t, mqtt.NOOPLogger{}, mqtt.ERROR)
	assert.Same(t, mqtt.ERROR, mqtt.CRITICAL)
}
