package common

import "math"

// DivCeil returns n divided by d, rounded up. A zero divisor is treated as 1.
//
// Parameters:
//   - n: the dividend
//   - d: the divisor
//
// Returns:
//   - uint32: ceil(n / d)
func DivCeil(n, d uint32) uint32 {
	if d == 0 {
		d = 1
	}
	return (n + d - 1) / d
}

// AlignUp rounds n up to the next multiple of align.
//
// Parameters:
//   - n: the value to align
//   - align: the alignment, must be positive
//
// Returns:
//   - uint32: the smallest multiple of align that is >= n
func AlignUp(n, align uint32) uint32 {
	return DivCeil(n, align) * align
}

// Clamp01 limits v to the [0, 1] range. NaN maps to 0.
func Clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// UnitToByte converts a color channel in [0, 1] to a byte by clamping, scaling by 255 and
// truncating.
func UnitToByte(v float32) byte {
	return byte(Clamp01(v) * 255)
}

// F16ToF32 decodes an IEEE 754 half precision value.
//
// Parameters:
//   - h: the 16-bit encoding
//
// Returns:
//   - float32: the decoded value, including subnormals, infinities and NaN
func F16ToF32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h) & 0x3ff

	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: value = mant * 2^-24.
		v := float32(mant) * (1.0 / (1 << 24))
		if sign != 0 {
			v = -v
		}
		return v
	case 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | mant<<13)
	default:
		return math.Float32frombits(sign | (exp+112)<<23 | mant<<13)
	}
}

// F32ToF16 encodes v as IEEE 754 half precision, rounding to nearest even.
// Values beyond the half range become infinities.
//
// Parameters:
//   - v: the value to encode
//
// Returns:
//   - uint16: the 16-bit encoding
func F32ToF16(v float32) uint16 {
	bits := math.Float32bits(v)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23) & 0xff
	mant := bits & 0x7fffff

	if exp == 0xff {
		if mant != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	}

	e := exp - 127 + 15
	switch {
	case e >= 0x1f:
		return sign | 0x7c00
	case e <= 0:
		if e < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint32(14 - e)
		half := mant >> shift
		rem := mant & (1<<shift - 1)
		mid := uint32(1) << (shift - 1)
		if rem > mid || (rem == mid && half&1 == 1) {
			half++
		}
		return sign | uint16(half)
	default:
		half := uint32(e)<<10 | mant>>13
		rem := mant & 0x1fff
		if rem > 0x1000 || (rem == 0x1000 && half&1 == 1) {
			half++
		}
		return sign | uint16(half)
	}
}
