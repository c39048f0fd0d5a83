// Package hardware implements the drive's Module and Gyro capabilities over a
// CAN bus described by a CAN map.
package hardware

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"swerve-core/utils"
)

// txTimeout bounds a single transmit so a stalled bus cannot hold up a cycle.
const txTimeout = 5 * time.Millisecond

// FrameHandler receives the decoded signals of one frame.
type FrameHandler func(values map[string]float64)

// Bus encodes outgoing frames and routes decoded incoming frames by ID.
type Bus struct {
	canMap *utils.CANMap
	writer utils.CANWriter
	reader utils.CANReader
	log    *utils.Logger

	mu       sync.RWMutex
	handlers map[uint32]FrameHandler

	txErrors atomic.Uint64
	rxFrames atomic.Uint64
}

func NewBus(canMap *utils.CANMap, writer utils.CANWriter, reader utils.CANReader, log *utils.Logger) *Bus {
	if log == nil {
		log = utils.NewNopLogger()
	}
	return &Bus{
		canMap:   canMap,
		writer:   writer,
		reader:   reader,
		log:      log,
		handlers: map[uint32]FrameHandler{},
	}
}

// Handle registers h for the named frame, replacing any previous handler.
func (b *Bus) Handle(frameName string, h FrameHandler) error {
	fd, err := b.canMap.FrameByName(frameName)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[fd.ID] = h
	return nil
}

// Send encodes and transmits a frame. Failures are logged and counted, never
// returned: the control cycle keeps running on a faulty bus.
func (b *Bus) Send(frameName string, values map[string]float64) {
	f, err := b.canMap.EncodeCANFrame(frameName, values)
	if err != nil {
		b.txErrors.Add(1)
		b.log.Error("encode %s: %v", frameName, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), txTimeout)
	defer cancel()
	if err := b.writer.WriteFrame(ctx, f); err != nil {
		b.txErrors.Add(1)
		b.log.Error("tx %s (0x%X): %v", frameName, f.ID, err)
		return
	}
	b.log.Trace("tx %s id=0x%X % X", frameName, f.ID, f.Data[:f.Length])
}

// Run receives frames until ctx is done or the reader fails.
func (b *Bus) Run(ctx context.Context) error {
	for {
		f, err := b.reader.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "can rx")
		}
		b.rxFrames.Add(1)

		b.mu.RLock()
		h, ok := b.handlers[f.ID]
		b.mu.RUnlock()
		if !ok {
			b.log.Trace("rx unhandled id=0x%X", f.ID)
			continue
		}

		values, err := b.canMap.DecodeCANFrame(f)
		if err != nil {
			b.log.Warn("rx decode 0x%X: %v", f.ID, err)
			continue
		}
		h(values)
	}
}

// TxErrors counts frames that failed to encode or transmit.
func (b *Bus) TxErrors() uint64 { return b.txErrors.Load() }

// RxFrames counts every frame received, handled or not.
func (b *Bus) RxFrames() uint64 { return b.rxFrames.Load() }

func (b *Bus) Close() error {
	return multierr.Combine(b.writer.Close(), b.reader.Close())
}
