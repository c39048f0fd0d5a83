package utils

import "math"

func bitMask(bitLen int) uint64 {
	if bitLen >= 64 {
		return math.MaxUint64
	}
	return (uint64(1) << bitLen) - 1
}

func getBits(payload uint64, startBit, bitLen int) uint64 {
	if bitLen <= 0 || bitLen > 64 {
		return 0
	}
	return (payload >> startBit) & bitMask(bitLen)
}

func setBits(payload uint64, startBit, bitLen int, value uint64) uint64 {
	if bitLen <= 0 || bitLen > 64 {
		return payload
	}
	mask := bitMask(bitLen)
	payload &^= mask << startBit
	payload |= (value & mask) << startBit
	return payload
}

// signExtend interprets the low bitLen bits of u as two's complement.
func signExtend(u uint64, bitLen int, signed bool) int64 {
	if !signed || bitLen >= 64 {
		return int64(u)
	}
	shift := 64 - bitLen
	return int64(u<<shift) >> shift
}

func toRawBits(raw int64, bitLen int) uint64 {
	return uint64(raw) & bitMask(bitLen)
}

func clamp(v, lo, hi float64) float64 {
	if lo == 0 && hi == 0 {
		return v
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampRaw(raw int64, bitLen int, signed bool) int64 {
	if bitLen <= 0 || bitLen > 63 {
		return raw
	}
	if !signed {
		max := int64(bitMask(bitLen))
		if raw < 0 {
			return 0
		}
		if raw > max {
			return max
		}
		return raw
	}
	min := -int64(1) << (bitLen - 1)
	max := int64(1)<<(bitLen-1) - 1
	if raw < min {
		return min
	}
	if raw > max {
		return max
	}
	return raw
}
