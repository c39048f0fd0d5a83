package vision

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObservation(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		yaw     float64
		dist    float64
		wantErr bool
	}{
		{name: "plain", in: "12.5,3.25", yaw: 12.5, dist: 3.25},
		{name: "spaces and newline", in: " -4 , 1.0\n", yaw: -4, dist: 1},
		{name: "empty", in: "  ", wantErr: true},
		{name: "too many fields", in: "1,2,3", wantErr: true},
		{name: "bad yaw", in: "x,2", wantErr: true},
		{name: "bad distance", in: "1,", wantErr: true},
		{name: "nan yaw", in: "NaN,1", wantErr: true},
		{name: "inf distance", in: "1,Inf", wantErr: true},
		{name: "negative inf yaw", in: "-Inf,2", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yaw, dist, err := parseObservation([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.yaw, yaw)
			assert.Equal(t, tt.dist, dist)
		})
	}
}

func TestUDPSensorReceives(t *testing.T) {
	s, err := ListenUDP("127.0.0.1:0", nil)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 0.0, s.YawToTarget())
	assert.Equal(t, 0.0, s.DistanceToTarget())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	conn, err := net.Dial("udp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("garbage"))
	require.NoError(t, err)
	_, err = conn.Write([]byte("NaN,Inf"))
	require.NoError(t, err)
	_, err = conn.Write([]byte("-7.5,2.0"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.Seq() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, -7.5, s.YawToTarget())
	assert.Equal(t, 2.0, s.DistanceToTarget())
	assert.Equal(t, uint64(2), s.Rejected())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
