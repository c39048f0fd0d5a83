package utils

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var canMapColumns = []string{
	"direction", "frame_id", "frame_name", "cycle_ms", "dlc",
	"signal_name", "start_bit", "bit_length", "endianness",
	"signed", "factor", "offset", "min", "max", "default", "unit", "comment",
}

// LoadCANMap reads a CAN map CSV from disk.
func LoadCANMap(csvPath string) (*CANMap, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, errors.Wrap(err, "open can map")
	}
	defer f.Close()

	m, err := ParseCANMap(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", csvPath)
	}
	return m, nil
}

// ParseCANMap reads one row per signal; rows sharing a frame_id form one frame.
// Lines starting with '#' are comments.
func ParseCANMap(src io.Reader) (*CANMap, error) {
	r := csv.NewReader(src)
	r.TrimLeadingSpace = true
	r.Comment = '#'

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, k := range canMapColumns {
		if _, ok := idx[k]; !ok {
			return nil, errors.Errorf("can map missing required column: %q", k)
		}
	}

	m := &CANMap{
		ByID:   map[uint32]*FrameDef{},
		ByName: map[string]*FrameDef{},
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := canMapRow{rec: rec, idx: idx}

		frameID, err := parseHexOrDecUint32(row.get("frame_id"))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid frame_id %q", row.get("frame_id"))
		}
		frameName := row.get("frame_name")
		dlc := row.getInt("dlc")

		sig := SignalDef{
			Name:       row.get("signal_name"),
			StartBit:   row.getInt("start_bit"),
			BitLength:  row.getInt("bit_length"),
			Endianness: row.get("endianness"),
			Signed:     row.getBool("signed"),
			Factor:     row.getFloat("factor"),
			Offset:     row.getFloat("offset"),
			Min:        row.getFloat("min"),
			Max:        row.getFloat("max"),
			Default:    row.getFloat("default"),
			Unit:       row.get("unit"),
			Comment:    row.get("comment"),
		}
		if row.err != nil {
			return nil, errors.Wrapf(row.err, "frame %s signal %s", frameName, sig.Name)
		}

		if sig.Endianness != "" && sig.Endianness != "little" {
			return nil, errors.Errorf("frame %s signal %s: unsupported endianness %q (only little supported)",
				frameName, sig.Name, sig.Endianness)
		}
		if sig.BitLength <= 0 || sig.BitLength > 64 {
			return nil, errors.Errorf("frame %s signal %s: invalid bit_length %d", frameName, sig.Name, sig.BitLength)
		}
		if sig.Factor == 0 {
			return nil, errors.Errorf("frame %s signal %s: factor must be non-zero", frameName, sig.Name)
		}
		if dlc <= 0 || dlc > 8 {
			return nil, errors.Errorf("frame %s (0x%X): invalid dlc %d", frameName, frameID, dlc)
		}
		if sig.StartBit < 0 || sig.StartBit+sig.BitLength > dlc*8 {
			return nil, errors.Errorf("frame %s signal %s: bits %d..%d exceed dlc %d",
				frameName, sig.Name, sig.StartBit, sig.StartBit+sig.BitLength-1, dlc)
		}

		fd, ok := m.ByID[frameID]
		if !ok {
			fd = &FrameDef{
				ID:        frameID,
				Name:      frameName,
				DLC:       dlc,
				Direction: strings.ToLower(row.get("direction")),
				CycleMS:   row.getInt("cycle_ms"),
			}
			m.ByID[frameID] = fd
			m.ByName[frameName] = fd
		}
		if fd.DLC != dlc {
			return nil, errors.Errorf("frame %s (0x%X) has inconsistent DLC (%d vs %d)", frameName, frameID, fd.DLC, dlc)
		}

		fd.Signals = append(fd.Signals, sig)
	}

	for _, fd := range m.ByID {
		sort.Slice(fd.Signals, func(i, j int) bool { return fd.Signals[i].StartBit < fd.Signals[j].StartBit })
		for i := 1; i < len(fd.Signals); i++ {
			prev, cur := fd.Signals[i-1], fd.Signals[i]
			if prev.StartBit+prev.BitLength > cur.StartBit {
				return nil, errors.Errorf("frame %s: signals %s and %s overlap", fd.Name, prev.Name, cur.Name)
			}
		}
	}

	return m, nil
}

// canMapRow reads typed cells and keeps the first parse error.
type canMapRow struct {
	rec []string
	idx map[string]int
	err error
}

func (r *canMapRow) get(col string) string {
	i := r.idx[col]
	if i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r *canMapRow) getInt(col string) int {
	s := r.get(col)
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil && r.err == nil {
		r.err = errors.Wrapf(err, "column %s", col)
	}
	return v
}

func (r *canMapRow) getFloat(col string) float64 {
	s := r.get(col)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && r.err == nil {
		r.err = errors.Wrapf(err, "column %s", col)
	}
	return v
}

func (r *canMapRow) getBool(col string) bool {
	s := strings.ToLower(r.get(col))
	return s == "true" || s == "1" || s == "yes"
}

func parseHexOrDecUint32(s string) (uint32, error) {
	ss := strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(ss, "0x") || strings.HasPrefix(ss, "0X") {
		base = 16
		ss = ss[2:]
	}
	u, err := strconv.ParseUint(ss, base, 32)
	if err != nil {
		return 0, err
	}
	return uint32(u), nil
}
