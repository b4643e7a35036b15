package bindings

import (
	_ "embed"
	"encoding/binary"
	"math"
)

// GPUTypesSource is the canonical WGSL definition of the Time, Mouse and DispatchInfo structs.
// It relies on the uint, uint2, int and float aliases declared ahead of it in the prelude.
//
//go:embed assets/types.wgsl
var GPUTypesSource string

// MaxCustomFloats is the capacity of the custom uniform buffer in f32 values.
const MaxCustomFloats = 64

// KeyboardKeys is the number of key codes tracked by the keyboard bitfield.
const KeyboardKeys = 256

// TimeData is the host copy of the time uniform.
// Matches the WGSL Time struct (12 bytes, padded to 16 for upload).
type TimeData struct {
	Frame   uint32  // offset 0
	Elapsed float32 // offset 4: seconds since the last reset
	Delta   float32 // offset 8: seconds since the previous frame
}

// Size returns the upload size of the TimeData struct in bytes.
//
// Returns:
//   - uint64: the padded struct size in bytes (16)
func (t *TimeData) Size() uint64 {
	return 16
}

// Marshal serializes the TimeData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (t *TimeData) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], t.Frame)
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(t.Elapsed))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(t.Delta))
	return buf
}

// MouseData is the host copy of the mouse uniform.
// Matches the WGSL Mouse struct (16 bytes, pos is 8-byte aligned).
type MouseData struct {
	Pos   [2]uint32 // offset 0: pixel position of the last click-held cursor sample
	Click int32     // offset 8: 1 while the button is held
}

// Size returns the size of the MouseData struct in bytes.
//
// Returns:
//   - uint64: the struct size in bytes (16)
func (m *MouseData) Size() uint64 {
	return 16
}

// Marshal serializes the MouseData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (m *MouseData) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], m.Pos[0])
	binary.LittleEndian.PutUint32(buf[4:8], m.Pos[1])
	binary.LittleEndian.PutUint32(buf[8:12], uint32(m.Click))
	return buf
}

// KeyboardData is a bitfield of KeyboardKeys keys laid out as array<vec4<u32>,2>.
// Key k lives in word k/32, bit k%32, which is element [k/128][(k%128)/32] on the GPU.
type KeyboardData struct {
	Bits [KeyboardKeys / 32]uint32
}

// Set sets or clears the bit of key code. Codes outside the bitfield are ignored.
func (k *KeyboardData) Set(code uint32, down bool) {
	if code >= KeyboardKeys {
		return
	}
	mask := uint32(1) << (code % 32)
	if down {
		k.Bits[code/32] |= mask
	} else {
		k.Bits[code/32] &^= mask
	}
}

// Down reports whether key code is held.
func (k *KeyboardData) Down(code uint32) bool {
	if code >= KeyboardKeys {
		return false
	}
	return k.Bits[code/32]&(1<<(code%32)) != 0
}

// Size returns the size of the KeyboardData struct in bytes.
//
// Returns:
//   - uint64: the struct size in bytes (32)
func (k *KeyboardData) Size() uint64 {
	return KeyboardKeys / 8
}

// Marshal serializes the bitfield into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (k *KeyboardData) Marshal() []byte {
	buf := make([]byte, k.Size())
	for i, w := range k.Bits {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

// CustomData holds the named float uniforms. Names and Values are parallel and the generated
// Custom struct declares one float member per name in this order.
type CustomData struct {
	Names  []string
	Values []float32
}

// Size returns the upload size of the custom uniform buffer in bytes.
//
// Returns:
//   - uint64: the buffer capacity in bytes (MaxCustomFloats * 4)
func (c *CustomData) Size() uint64 {
	return MaxCustomFloats * 4
}

// Marshal serializes the values into a zero padded buffer of Size bytes. The struct with no
// names holds one placeholder member, which reads as 0.
//
// Returns:
//   - []byte: buffer ready for GPU upload
func (c *CustomData) Marshal() []byte {
	buf := make([]byte, c.Size())
	for i, v := range c.Values {
		if i >= MaxCustomFloats {
			break
		}
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DispatchData is the host copy of the dispatch uniform.
// Matches the WGSL DispatchInfo struct (4 bytes, padded to 16 for upload).
type DispatchData struct {
	ID uint32 // offset 0: repeat index of the current dispatch
}

// Size returns the upload size of the DispatchData struct in bytes.
//
// Returns:
//   - uint64: the padded struct size in bytes (16)
func (d *DispatchData) Size() uint64 {
	return 16
}

// Marshal serializes the DispatchData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (d *DispatchData) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], d.ID)
	return buf
}

// marshalU32s packs values little-endian. An empty slice packs as a single zero word so the
// storage binding is never zero sized.
func marshalU32s(values []uint32) []byte {
	if len(values) == 0 {
		return make([]byte, 4)
	}
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}
