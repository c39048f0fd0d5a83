package utils

import (
	"sort"

	"github.com/pkg/errors"
)

// Frame directions as written in the CAN map, seen from this controller.
const (
	DirectionTX = "tx"
	DirectionRX = "rx"
)

// SignalDef is one little-endian bit field inside a frame.
type SignalDef struct {
	Name       string
	StartBit   int
	BitLength  int
	Signed     bool
	Factor     float64
	Offset     float64
	Min        float64
	Max        float64
	Default    float64
	Unit       string
	Comment    string
	Endianness string // only "little" supported
}

type FrameDef struct {
	ID        uint32
	Name      string
	DLC       int
	Direction string
	CycleMS   int
	Signals   []SignalDef
}

// Signal returns the named signal definition.
func (fd *FrameDef) Signal(name string) (SignalDef, bool) {
	for _, s := range fd.Signals {
		if s.Name == name {
			return s, true
		}
	}
	return SignalDef{}, false
}

// CANMap indexes frame definitions by ID and by name.
type CANMap struct {
	ByID   map[uint32]*FrameDef
	ByName map[string]*FrameDef
}

func (m *CANMap) FrameNames() []string {
	out := make([]string, 0, len(m.ByName))
	for k := range m.ByName {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (m *CANMap) FrameByName(name string) (*FrameDef, error) {
	fd, ok := m.ByName[name]
	if !ok {
		return nil, errors.Errorf("unknown frame %q (available: %v)", name, m.FrameNames())
	}
	return fd, nil
}

func (m *CANMap) FrameByID(id uint32) (*FrameDef, error) {
	fd, ok := m.ByID[id]
	if !ok {
		return nil, errors.Errorf("unknown frame id 0x%X", id)
	}
	return fd, nil
}

// Require checks that every named frame exists, so backends fail at startup
// instead of on the first cycle.
func (m *CANMap) Require(names ...string) error {
	for _, n := range names {
		if _, err := m.FrameByName(n); err != nil {
			return err
		}
	}
	return nil
}
