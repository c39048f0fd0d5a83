package utils

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

type CANWriter interface {
	WriteFrame(ctx context.Context, frame can.Frame) error
	Close() error
}

// CANReader blocks until a frame arrives or ctx is done.
type CANReader interface {
	ReadFrame(ctx context.Context) (can.Frame, error)
	Close() error
}

type SocketCANWriter struct {
	conn net.Conn
	tx   *socketcan.Transmitter
}

// NewSocketCANWriter dials iface ("can0", "vcan0", ...).
func NewSocketCANWriter(ctx context.Context, iface string) (*SocketCANWriter, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, errors.Wrap(err, "socketcan dial")
	}
	return &SocketCANWriter{
		conn: conn,
		tx:   socketcan.NewTransmitter(conn),
	}, nil
}

func (w *SocketCANWriter) WriteFrame(ctx context.Context, frame can.Frame) error {
	return w.tx.TransmitFrame(ctx, frame)
}

func (w *SocketCANWriter) Close() error {
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// SocketCANReader pumps the socket from a single goroutine so ReadFrame can
// honour ctx without leaking a reader per call.
type SocketCANReader struct {
	conn   net.Conn
	frames chan can.Frame
	done   chan struct{}
	stop   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	err error
}

func NewSocketCANReader(ctx context.Context, iface string) (*SocketCANReader, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, errors.Wrap(err, "socketcan dial")
	}
	r := &SocketCANReader{
		conn:   conn,
		frames: make(chan can.Frame, 64),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
	}
	go r.pump(socketcan.NewReceiver(conn))
	return r, nil
}

func (r *SocketCANReader) pump(recv *socketcan.Receiver) {
	defer close(r.done)
	defer func() {
		r.mu.Lock()
		if r.err == nil {
			r.err = errors.New("can socket closed")
		}
		r.mu.Unlock()
	}()
	for recv.Receive() {
		if recv.HasErrorFrame() {
			continue
		}
		select {
		case r.frames <- recv.Frame():
		case <-r.stop:
			return
		}
	}
	r.mu.Lock()
	r.err = recv.Err()
	r.mu.Unlock()
}

func (r *SocketCANReader) ReadFrame(ctx context.Context) (can.Frame, error) {
	select {
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	case f := <-r.frames:
		return f, nil
	case <-r.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return can.Frame{}, errors.Wrap(r.err, "socketcan receive")
	}
}

func (r *SocketCANReader) Close() error {
	r.once.Do(func() { close(r.stop) })
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// Loopback is an in-memory bus: every written frame is delivered to all
// readers opened on it. Used for tests and bench runs without a CAN interface.
type Loopback struct {
	mu      sync.Mutex
	readers []*loopbackReader
	written []can.Frame
}

func NewLoopback() *Loopback { return &Loopback{} }

func (l *Loopback) WriteFrame(ctx context.Context, frame can.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.written = append(l.written, frame)
	for _, r := range l.readers {
		select {
		case r.frames <- frame:
		default:
			// reader is behind; drop like a full socket buffer would
		}
	}
	return nil
}

func (l *Loopback) Close() error { return nil }

// Written returns every frame written so far.
func (l *Loopback) Written() []can.Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]can.Frame, len(l.written))
	copy(out, l.written)
	return out
}

// Reader opens a new reader on the bus.
func (l *Loopback) Reader() CANReader {
	r := &loopbackReader{frames: make(chan can.Frame, 256), closed: make(chan struct{})}
	l.mu.Lock()
	l.readers = append(l.readers, r)
	l.mu.Unlock()
	return r
}

type loopbackReader struct {
	frames chan can.Frame
	closed chan struct{}
	once   sync.Once
}

func (r *loopbackReader) ReadFrame(ctx context.Context) (can.Frame, error) {
	select {
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	case <-r.closed:
		return can.Frame{}, errors.New("loopback reader closed")
	case f := <-r.frames:
		return f, nil
	}
}

func (r *loopbackReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}
