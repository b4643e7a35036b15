package bindings

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrCustomMismatch is returned when custom names and values differ in length.
var ErrCustomMismatch = errors.New("custom names and values must have the same length")

// ErrTooManyCustom is returned when more than MaxCustomFloats custom values are set.
var ErrTooManyCustom = fmt.Errorf("at most %d custom values are supported", MaxCustomFloats)

// registry is the implementation of the Registry interface.
type registry struct {
	mu sync.RWMutex

	width  uint32
	height uint32

	maxAsserts    int
	passF32       bool
	storage0Bytes uint64
	storage1Bytes uint64

	time     TimeData
	mouse    MouseData
	keyboard KeyboardData
	custom   CustomData
	dispatch DispatchData
	userData *shader.DataTable
}

// Registry is the host side of the group 0 bindings. It owns the CPU copies of every uniform,
// the custom value names used by the prelude and the #data tables, and it renders the WGSL
// declarations and the wgpu layout of the fixed binding table.
//
// A Registry is safe for concurrent use. The render loop calls the setters and Stage while the
// compiler reads CustomNames, UserData and WGSL.
type Registry interface {
	// Width returns the screen width in pixels.
	//
	// Returns:
	//   - uint32: the width
	Width() uint32

	// Height returns the screen height in pixels.
	//
	// Returns:
	//   - uint32: the height
	Height() uint32

	// Resize sets the screen size used for mouse normalisation and the default dispatch grid.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height uint32)

	// SetCustomFloats replaces the named custom values. The names become members of the
	// generated Custom struct on the next compile.
	//
	// Parameters:
	//   - names: the member names
	//   - values: the values, one per name
	//
	// Returns:
	//   - error: ErrCustomMismatch or ErrTooManyCustom
	SetCustomFloats(names []string, values []float32) error

	// SetCustomFloat updates the value of an existing custom name.
	//
	// Parameters:
	//   - name: the member name
	//   - value: the new value
	//
	// Returns:
	//   - bool: false if name is not a custom value
	SetCustomFloat(name string, value float32) bool

	// CustomNames returns the current custom value names in struct order.
	//
	// Returns:
	//   - []string: a copy of the names
	CustomNames() []string

	// Custom returns a copy of the custom uniform data.
	//
	// Returns:
	//   - CustomData: the names and values
	Custom() CustomData

	// SetUserData installs the #data tables of the most recent compile.
	//
	// Parameters:
	//   - table: the tables, copied
	SetUserData(table *shader.DataTable)

	// UserData returns a copy of the current #data tables.
	//
	// Returns:
	//   - *shader.DataTable: the tables
	UserData() *shader.DataTable

	// SetTime sets the elapsed and delta time in seconds.
	//
	// Parameters:
	//   - elapsed: seconds since reset
	//   - delta: seconds since the previous frame
	SetTime(elapsed, delta float32)

	// AdvanceFrame increments the frame counter, wrapping at 2^32.
	AdvanceFrame()

	// Time returns the time uniform.
	//
	// Returns:
	//   - TimeData: the host copy
	Time() TimeData

	// SetMouse records a normalised cursor position. It applies only while the button is held.
	//
	// Parameters:
	//   - x: horizontal position in [0, 1]
	//   - y: vertical position in [0, 1]
	SetMouse(x, y float32)

	// SetMouseClick records the button state.
	//
	// Parameters:
	//   - down: whether the button is held
	SetMouseClick(down bool)

	// Mouse returns the mouse uniform.
	//
	// Returns:
	//   - MouseData: the host copy
	Mouse() MouseData

	// SetKey sets the state of a key code in the keyboard bitfield.
	//
	// Parameters:
	//   - code: the key code, codes >= KeyboardKeys are ignored
	//   - down: whether the key is held
	SetKey(code uint32, down bool)

	// Keyboard returns the keyboard bitfield.
	//
	// Returns:
	//   - KeyboardData: the host copy
	Keyboard() KeyboardData

	// SetDispatchID sets the repeat index written before a dispatch.
	//
	// Parameters:
	//   - id: the repeat index
	SetDispatchID(id uint32)

	// SetPassF32 selects rgba32float pass textures. It takes effect on the next compile.
	//
	// Parameters:
	//   - enabled: true for 32-bit pass textures
	SetPassF32(enabled bool)

	// PassF32 reports whether 32-bit pass textures are selected.
	//
	// Returns:
	//   - bool: the pass format flag
	PassF32() bool

	// PassFormat returns the texture format of the pass textures.
	//
	// Returns:
	//   - wgpu.TextureFormat: rgba16float or rgba32float
	PassFormat() wgpu.TextureFormat

	// MaxAsserts returns the number of assertion counters.
	//
	// Returns:
	//   - int: the counter capacity
	MaxAsserts() int

	// StorageSizes returns the byte sizes of storage slots 0 and 1.
	//
	// Returns:
	//   - [2]uint64: the sizes
	StorageSizes() [2]uint64

	// Reset clears time, mouse, keyboard and dispatch state. Custom values, user data and the
	// pass format are kept.
	Reset()

	// WGSL renders the declarations of every fixed binding. The storage slots are declared by
	// #storage in user code and are not included.
	//
	// Returns:
	//   - string: one declaration per line
	WGSL() string

	// LayoutDescriptor returns the group 0 layout covering every binding, storage slots included.
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the layout descriptor
	LayoutDescriptor() wgpu.BindGroupLayoutDescriptor

	// Stage returns the per-frame uniform writes: time, mouse, keyboard and custom.
	//
	// Returns:
	//   - []BufferWrite: one write per uniform binding
	Stage() []BufferWrite

	// DispatchWrite returns the write of the dispatch uniform.
	//
	// Returns:
	//   - BufferWrite: the write targeting BindingDispatch
	DispatchWrite() BufferWrite

	// DataWrite returns the write of the #data storage buffer.
	//
	// Returns:
	//   - BufferWrite: the write targeting BindingData
	DataWrite() BufferWrite
}

var _ Registry = &registry{}

// NewRegistry creates a Registry for a screen of the given size.
//
// Parameters:
//   - width: the screen width in pixels
//   - height: the screen height in pixels
//   - options: functional options for limits and storage sizes
//
// Returns:
//   - Registry: the new registry
func NewRegistry(width, height uint32, options ...RegistryOption) Registry {
	r := &registry{
		width:         width,
		height:        height,
		maxAsserts:    shader.DefaultMaxAsserts,
		storage0Bytes: DefaultStorage0Bytes,
		storage1Bytes: DefaultStorage1Bytes,
		userData:      shader.NewSourceMap().UserData,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *registry) Width() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.width
}

func (r *registry) Height() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.height
}

func (r *registry) Resize(width, height uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width = width
	r.height = height
}

func (r *registry) SetCustomFloats(names []string, values []float32) error {
	if len(names) != len(values) {
		return ErrCustomMismatch
	}
	if len(names) > MaxCustomFloats {
		return ErrTooManyCustom
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.custom.Names = append([]string(nil), names...)
	r.custom.Values = append([]float32(nil), values...)
	return nil
}

func (r *registry) SetCustomFloat(name string, value float32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.custom.Names {
		if n == name {
			r.custom.Values[i] = value
			return true
		}
	}
	return false
}

func (r *registry) CustomNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.custom.Names...)
}

func (r *registry) Custom() CustomData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return CustomData{
		Names:  append([]string(nil), r.custom.Names...),
		Values: append([]float32(nil), r.custom.Values...),
	}
}

func (r *registry) SetUserData(table *shader.DataTable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if table == nil {
		r.userData = shader.NewSourceMap().UserData
		return
	}
	r.userData = table.Clone()
}

func (r *registry) UserData() *shader.DataTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.userData.Clone()
}

func (r *registry) SetTime(elapsed, delta float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.time.Elapsed = elapsed
	r.time.Delta = delta
}

func (r *registry) AdvanceFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.time.Frame++
}

func (r *registry) Time() TimeData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.time
}

func (r *registry) SetMouse(x, y float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mouse.Click != 1 {
		return
	}
	r.mouse.Pos = [2]uint32{toPixel(x, r.width), toPixel(y, r.height)}
}

// toPixel scales a normalised coordinate, saturating at 0.
func toPixel(v float32, extent uint32) uint32 {
	p := v * float32(extent)
	if p <= 0 {
		return 0
	}
	return uint32(p)
}

func (r *registry) SetMouseClick(down bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mouse.Click = 0
	if down {
		r.mouse.Click = 1
	}
}

func (r *registry) Mouse() MouseData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mouse
}

func (r *registry) SetKey(code uint32, down bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keyboard.Set(code, down)
}

func (r *registry) Keyboard() KeyboardData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keyboard
}

func (r *registry) SetDispatchID(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatch.ID = id
}

func (r *registry) SetPassF32(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passF32 = enabled
}

func (r *registry) PassF32() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.passF32
}

func (r *registry) PassFormat() wgpu.TextureFormat {
	if r.PassF32() {
		return wgpu.TextureFormatRGBA32Float
	}
	return wgpu.TextureFormatRGBA16Float
}

func (r *registry) MaxAsserts() int {
	return r.maxAsserts
}

func (r *registry) StorageSizes() [2]uint64 {
	return [2]uint64{r.storage0Bytes, r.storage1Bytes}
}

func (r *registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.time = TimeData{}
	r.mouse = MouseData{}
	r.keyboard = KeyboardData{}
	r.dispatch = DispatchData{}
}

func (r *registry) WGSL() string {
	var sb strings.Builder
	for _, b := range Table(r.PassF32(), r.maxAsserts) {
		if isStorageSlot(b.Index) {
			continue
		}
		sb.WriteString(b.Declaration())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (r *registry) LayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	table := Table(r.PassF32(), r.maxAsserts)
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(table))
	for _, b := range table {
		entries = append(entries, b.LayoutEntry())
	}
	return wgpu.BindGroupLayoutDescriptor{
		Label:   "Compute Bind Group Layout",
		Entries: entries,
	}
}

func (r *registry) Stage() []BufferWrite {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return []BufferWrite{
		{Binding: int(BindingTime), Data: r.time.Marshal()},
		{Binding: int(BindingMouse), Data: r.mouse.Marshal()},
		{Binding: int(BindingKeyboard), Data: r.keyboard.Marshal()},
		{Binding: int(BindingCustom), Data: r.custom.Marshal()},
	}
}

func (r *registry) DispatchWrite() BufferWrite {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return BufferWrite{Binding: int(BindingDispatch), Data: r.dispatch.Marshal()}
}

func (r *registry) DataWrite() BufferWrite {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return BufferWrite{Binding: int(BindingData), Data: marshalU32s(r.userData.Flatten())}
}
