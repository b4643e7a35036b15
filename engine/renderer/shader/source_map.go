package shader

import (
	"strings"
)

// dummyTableName is the bootstrap data table present until the first real #data entry.
// It keeps the generated Data struct non-empty for shaders without #data.
const dummyTableName = "_dummy"

// DataTable is an insertion-ordered map of named u32 tables accumulated by #data.
type DataTable struct {
	names  []string
	values map[string][]uint32
}

// NewDataTable returns an empty table.
func NewDataTable() *DataTable {
	return &DataTable{values: make(map[string][]uint32)}
}

// Append extends the table called name with values, creating it at the end of the
// insertion order if it does not exist.
func (d *DataTable) Append(name string, values ...uint32) {
	existing, ok := d.values[name]
	if !ok {
		d.names = append(d.names, name)
	}
	d.values[name] = append(existing, values...)
}

// Get returns the values of the named table.
func (d *DataTable) Get(name string) ([]uint32, bool) {
	v, ok := d.values[name]
	return v, ok
}

// Names returns table names in insertion order.
func (d *DataTable) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Len returns the number of tables.
func (d *DataTable) Len() int {
	return len(d.names)
}

// Clear removes every table.
func (d *DataTable) Clear() {
	d.names = d.names[:0]
	clear(d.values)
}

// Flatten concatenates all tables in insertion order, matching the field order of the
// generated Data struct.
func (d *DataTable) Flatten() []uint32 {
	total := 0
	for _, n := range d.names {
		total += len(d.values[n])
	}
	out := make([]uint32, 0, total)
	for _, n := range d.names {
		out = append(out, d.values[n]...)
	}
	return out
}

// Clone returns a deep copy.
func (d *DataTable) Clone() *DataTable {
	c := NewDataTable()
	for _, n := range d.names {
		c.Append(n, d.values[n]...)
	}
	return c
}

// onlyBootstrap reports whether the bootstrap table is the only table.
func (d *DataTable) onlyBootstrap() bool {
	if len(d.names) != 1 {
		return false
	}
	return d.names[0] == dummyTableName
}

// SourceMap is the output of a successful preprocessing run: the transformed shader body,
// a line map back to the input, and the per-entry-point dispatch metadata collected from
// directives.
type SourceMap struct {
	// Source holds the transformed body. Every line ends with a newline.
	Source string

	// Extensions holds the hoisted enable statements, one per line. They are not line mapped.
	Extensions string

	// LineMap[i] is the input line that produced output line i of Source.
	LineMap []int

	// WorkgroupCount holds explicit dispatch grids keyed by entry point name.
	WorkgroupCount map[string][3]uint32

	// DispatchOnce marks entry points that run only on the first frame after a compile.
	DispatchOnce map[string]bool

	// DispatchCount holds per-frame repeat counts keyed by entry point name.
	DispatchCount map[string]uint32

	// AssertMap[i] is the input line of the assertion using counter i.
	AssertMap []int

	// UserData holds the tables accumulated by #data.
	UserData *DataTable
}

// NewSourceMap returns an empty SourceMap holding only the bootstrap data table.
func NewSourceMap() *SourceMap {
	sm := &SourceMap{
		LineMap:        make([]int, 0, 256),
		WorkgroupCount: make(map[string][3]uint32),
		DispatchOnce:   make(map[string]bool),
		DispatchCount:  make(map[string]uint32),
		UserData:       NewDataTable(),
	}
	sm.UserData.Append(dummyTableName, 0)
	return sm
}

// Lines returns Source split into lines, without the trailing empty element.
func (s *SourceMap) Lines() []string {
	if s.Source == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s.Source, "\n"), "\n")
}

// OriginalLine maps a 1-based output line of Source back to the input line that produced it.
//
// Parameters:
//   - outputLine: the 1-based line number within Source
//
// Returns:
//   - int: the input line number
//   - bool: false if outputLine is out of range
func (s *SourceMap) OriginalLine(outputLine int) (int, bool) {
	if outputLine < 1 || outputLine > len(s.LineMap) {
		return 0, false
	}
	return s.LineMap[outputLine-1], true
}

// AssertLine returns the input line of the assertion that uses counter.
func (s *SourceMap) AssertLine(counter int) (int, bool) {
	if counter < 0 || counter >= len(s.AssertMap) {
		return 0, false
	}
	return s.AssertMap[counter], true
}
