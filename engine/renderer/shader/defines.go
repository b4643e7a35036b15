package shader

import (
	"errors"
	"regexp"
	"slices"
)

// wordRegex matches the tokens eligible for macro substitution.
var wordRegex = regexp.MustCompile(`[[:word:]]+`)

// ErrRedefined is returned by DefinitionTable.Define when the name already exists.
var ErrRedefined = errors.New("name already defined")

// DefinitionTable is the write-once name to value map used for #define substitution.
// It is owned by a single PreProcessor and is not safe for concurrent use.
type DefinitionTable struct {
	values map[string]string
}

// NewDefinitionTable creates a table seeded with a copy of seed. Seeded names count as
// defined, so a later Define of the same name fails.
//
// Parameters:
//   - seed: built-in definitions such as SCREEN_WIDTH, may be nil
//
// Returns:
//   - *DefinitionTable: the new table
func NewDefinitionTable(seed map[string]string) *DefinitionTable {
	values := make(map[string]string, len(seed)+8)
	for k, v := range seed {
		values[k] = v
	}
	return &DefinitionTable{values: values}
}

// Define inserts name with value. It fails with ErrRedefined if name is present.
func (t *DefinitionTable) Define(name, value string) error {
	if _, ok := t.values[name]; ok {
		return ErrRedefined
	}
	t.values[name] = value
	return nil
}

// set writes name unconditionally. Only used while seeding built-ins.
func (t *DefinitionTable) set(name, value string) {
	t.values[name] = value
}

// Lookup returns the value for name.
func (t *DefinitionTable) Lookup(name string) (string, bool) {
	v, ok := t.values[name]
	return v, ok
}

// Len returns the number of definitions.
func (t *DefinitionTable) Len() int {
	return len(t.values)
}

// Names returns the defined names in sorted order.
func (t *DefinitionTable) Names() []string {
	names := make([]string, 0, len(t.values))
	for k := range t.values {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Substitute replaces every word token of line that names a definition with its value.
// Replacement is a single pass; substituted values are not expanded again. Tokens inside
// string literals are substituted like any other.
//
// Parameters:
//   - line: a raw source line
//
// Returns:
//   - string: the line with definitions substituted
func (t *DefinitionTable) Substitute(line string) string {
	if len(t.values) == 0 {
		return line
	}
	return wordRegex.ReplaceAllStringFunc(line, func(word string) string {
		if v, ok := t.values[word]; ok {
			return v
		}
		return word
	})
}
