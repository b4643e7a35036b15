package bindings

// DefaultStorage0Bytes is the default size of storage slot 0.
const DefaultStorage0Bytes = 128 << 20

// DefaultStorage1Bytes is the default size of storage slot 1.
const DefaultStorage1Bytes = 8 << 20

// RegistryOption is a functional option used to configure a Registry during construction.
type RegistryOption func(*registry)

// WithMaxAsserts sets the number of assertion counters declared in _assert_counts.
//
// Parameters:
//   - n: the counter capacity, ignored if not positive
//
// Returns:
//   - RegistryOption: a function that sets the counter capacity
func WithMaxAsserts(n int) RegistryOption {
	return func(r *registry) {
		if n > 0 {
			r.maxAsserts = n
		}
	}
}

// WithPassF32 selects 32-bit float pass textures.
//
// Parameters:
//   - enabled: true for rgba32float
//
// Returns:
//   - RegistryOption: a function that sets the pass format
func WithPassF32(enabled bool) RegistryOption {
	return func(r *registry) {
		r.passF32 = enabled
	}
}

// WithStorageSizes sets the byte sizes of the two storage slots. Zero keeps the default.
//
// Parameters:
//   - slot0: the size of storage slot 0
//   - slot1: the size of storage slot 1
//
// Returns:
//   - RegistryOption: a function that sets the storage sizes
func WithStorageSizes(slot0, slot1 uint64) RegistryOption {
	return func(r *registry) {
		if slot0 > 0 {
			r.storage0Bytes = slot0
		}
		if slot1 > 0 {
			r.storage1Bytes = slot1
		}
	}
}

// WithCustomFloats seeds the custom values. Mismatched lengths are ignored.
//
// Parameters:
//   - names: the member names
//   - values: the values, one per name
//
// Returns:
//   - RegistryOption: a function that seeds the custom values
func WithCustomFloats(names []string, values []float32) RegistryOption {
	return func(r *registry) {
		if len(names) == len(values) && len(names) <= MaxCustomFloats {
			r.custom.Names = append([]string(nil), names...)
			r.custom.Values = append([]float32(nil), values...)
		}
	}
}
