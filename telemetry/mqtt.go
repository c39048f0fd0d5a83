package telemetry

import (
	"crypto/tls"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"swerve-core/utils"
)

// MQTTConfig describes the broker connection for MQTTSink.
type MQTTConfig struct {
	Broker          string `json:"broker" yaml:"broker"`
	Port            int    `json:"port" yaml:"port"`
	Username        string `json:"username,omitempty" yaml:"username,omitempty"`
	Password        string `json:"password,omitempty" yaml:"password,omitempty"`
	UseTLS          bool   `json:"use_tls,omitempty" yaml:"use_tls,omitempty"`
	InsecureSkipTLS bool   `json:"insecure_skip_tls,omitempty" yaml:"insecure_skip_tls,omitempty"`
	TopicPrefix     string `json:"topic_prefix" yaml:"topic_prefix"`
	ClientID        string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	ConnectTimeoutS int    `json:"connect_timeout_s,omitempty" yaml:"connect_timeout_s,omitempty"`
}

// BrokerURL returns the scheme://host:port the client dials.
func (c MQTTConfig) BrokerURL() string {
	protocol := "tcp"
	if c.UseTLS {
		protocol = "tls"
	}
	return fmt.Sprintf("%s://%s:%d", protocol, c.Broker, c.Port)
}

// RouteClientLogs points the paho client's package-level ERROR and CRITICAL
// loggers at log. Those loggers are process globals shared by every client,
// so call this once at startup rather than per sink.
func RouteClientLogs(log *utils.Logger) error {
	stdLog, err := zap.NewStdLogAt(log.Zap().Named("paho"), zap.ErrorLevel)
	if err != nil {
		return errors.Wrap(err, "paho logger")
	}
	mqtt.ERROR = stdLog
	mqtt.CRITICAL = stdLog
	return nil
}

// MQTTSink publishes each value as a plain-text payload on
// <prefix>/<name> with QoS 0, never waiting on the delivery token.
type MQTTSink struct {
	client  mqtt.Client
	prefix  string
	log     *utils.Logger
	dropped atomic.Uint64
}

// NewMQTTSink connects to the broker. The connection keeps reconnecting in
// the background; values published while disconnected are dropped.
func NewMQTTSink(cfg MQTTConfig, log *utils.Logger) (*MQTTSink, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker not set")
	}
	if cfg.Port == 0 {
		cfg.Port = 1883
	}
	timeout := time.Duration(cfg.ConnectTimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("swerve-core-%d", time.Now().Unix())
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL())
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: cfg.InsecureSkipTLS})
	}
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(timeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn("MQTT connection lost: %v", err)
	}
	opts.OnReconnecting = func(mqtt.Client, *mqtt.ClientOptions) {
		log.Info("MQTT reconnecting to %s", cfg.BrokerURL())
	}

	client := mqtt.NewClient(opts)
	log.Info("MQTT connecting to %s as %s", cfg.BrokerURL(), clientID)

	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, errors.Errorf("mqtt connect to %s timed out", cfg.BrokerURL())
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrap(err, "mqtt connect")
	}

	return &MQTTSink{
		client: client,
		prefix: strings.TrimSuffix(cfg.TopicPrefix, "/"),
		log:    log,
	}, nil
}

// Topic returns the topic a value name is published on.
func (s *MQTTSink) Topic(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *MQTTSink) Publish(name string, value float64) {
	if !s.client.IsConnectionOpen() {
		s.dropped.Add(1)
		return
	}
	payload := strconv.FormatFloat(value, 'f', -1, 64)
	s.client.Publish(s.Topic(name), 0, false, payload)
}

// Dropped returns how many values were discarded while disconnected.
func (s *MQTTSink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close disconnects, allowing 250 ms for in-flight messages.
func (s *MQTTSink) Close() error {
	s.log.Info("MQTT closing: dropped=%d", s.Dropped())
	if s.client.IsConnected() {
		s.client.Disconnect(250)
	}
	return nil
}
