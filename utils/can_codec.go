package utils

import (
	"math"

	"github.com/pkg/errors"
	"go.einride.tech/can"
)

// EncodeFrame packs physical values into the named frame's payload. Missing
// signals take their default. Values are clamped to [min, max] unless both
// are zero, then to the raw range of the field.
func (m *CANMap) EncodeFrame(frameName string, values map[string]float64) ([]byte, uint32, error) {
	fd, err := m.FrameByName(frameName)
	if err != nil {
		return nil, 0, err
	}

	var payload uint64
	for _, s := range fd.Signals {
		v, ok := values[s.Name]
		if !ok {
			v = s.Default
		}
		v = clamp(v, s.Min, s.Max)

		raw := int64(math.Round((v - s.Offset) / s.Factor))
		raw = clampRaw(raw, s.BitLength, s.Signed)
		payload = setBits(payload, s.StartBit, s.BitLength, toRawBits(raw, s.BitLength))
	}

	out := make([]byte, fd.DLC)
	for i := 0; i < fd.DLC; i++ {
		out[i] = byte(payload >> (8 * i))
	}
	return out, fd.ID, nil
}

// EncodeCANFrame is EncodeFrame producing a frame ready to transmit.
func (m *CANMap) EncodeCANFrame(frameName string, values map[string]float64) (can.Frame, error) {
	payload, id, err := m.EncodeFrame(frameName, values)
	if err != nil {
		return can.Frame{}, err
	}

	f := can.Frame{ID: id, Length: uint8(len(payload))}
	copy(f.Data[:], payload)
	return f, nil
}

// DecodeFrame unpacks every signal of the frame with the given ID.
func (m *CANMap) DecodeFrame(frameID uint32, data []byte) (map[string]float64, error) {
	fd, err := m.FrameByID(frameID)
	if err != nil {
		return nil, err
	}
	if len(data) < fd.DLC {
		return nil, errors.Errorf("frame 0x%X expects DLC %d, got %d", frameID, fd.DLC, len(data))
	}

	var payload uint64
	for i := 0; i < fd.DLC && i < 8; i++ {
		payload |= uint64(data[i]) << (8 * i)
	}

	out := make(map[string]float64, len(fd.Signals))
	for _, s := range fd.Signals {
		raw := signExtend(getBits(payload, s.StartBit, s.BitLength), s.BitLength, s.Signed)
		out[s.Name] = float64(raw)*s.Factor + s.Offset
	}
	return out, nil
}

// DecodeCANFrame is DecodeFrame for a received frame.
func (m *CANMap) DecodeCANFrame(f can.Frame) (map[string]float64, error) {
	return m.DecodeFrame(f.ID, f.Data[:f.Length])
}
