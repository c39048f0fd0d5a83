package vision

import (
	"context"
	"math"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"swerve-core/utils"
)

const udpReadBuffer = 512

// UDPSensor listens for "yaw,distance" datagrams from a camera coprocessor
// and reports the most recent one. Before the first datagram both values are 0.
type UDPSensor struct {
	conn *net.UDPConn
	log  *utils.Logger

	mu       sync.RWMutex
	yaw      float64
	distance float64
	seq      uint64
	rejected uint64
}

// ListenUDP binds addr. Call Run to start receiving.
func ListenUDP(addr string, log *utils.Logger) (*UDPSensor, error) {
	if log == nil {
		log = utils.NewNopLogger()
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", addr)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}
	return &UDPSensor{conn: conn, log: log}, nil
}

// Addr returns the bound local address.
func (s *UDPSensor) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Run receives datagrams until ctx is done. Malformed payloads are counted and skipped.
func (s *UDPSensor) Run(ctx context.Context) error {
	buf := make([]byte, udpReadBuffer)
	for {
		if ctx.Err() != nil {
			return nil
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "udp sensor read")
		}

		yaw, dist, err := parseObservation(buf[:n])
		if err != nil {
			s.mu.Lock()
			s.rejected++
			s.mu.Unlock()
			s.log.Trace("udp sensor: %v", err)
			continue
		}
		s.Update(yaw, dist)
	}
}

// Update stores an observation as if it had arrived on the socket.
func (s *UDPSensor) Update(yaw, distance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.yaw, s.distance = yaw, distance
	s.seq++
}

func (s *UDPSensor) YawToTarget() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.yaw
}

func (s *UDPSensor) DistanceToTarget() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.distance
}

// Seq counts accepted observations. Rejected counts malformed ones.
func (s *UDPSensor) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

func (s *UDPSensor) Rejected() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rejected
}

func (s *UDPSensor) Close() error {
	return s.conn.Close()
}

// parseObservation parses "yaw,distance".
func parseObservation(b []byte) (float64, float64, error) {
	str := strings.TrimSpace(string(b))
	if str == "" {
		return 0, 0, errors.New("empty payload")
	}
	parts := strings.Split(str, ",")
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("expected 2 fields, got %d", len(parts))
	}
	yaw, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, errors.Wrap(err, "yaw")
	}
	dist, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, errors.Wrap(err, "distance")
	}
	if !finite(yaw) || !finite(dist) {
		return 0, 0, errors.Errorf("non-finite value in %q", str)
	}
	return yaw, dist, nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
