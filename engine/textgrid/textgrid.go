// package textgrid lays out text into the fixed terminal grid that shaders read from storage slots 0 and 1.
package textgrid

const (
	// Rows is the number of grid rows.
	Rows = 30
	// Cols is the number of grid columns.
	Cols = 80
	// DefaultColor is the packed colour of an unwritten cell.
	DefaultColor uint32 = 0xFFFFFF
)

// StyledRune is a single character and its foreground colour.
type StyledRune struct {
	Char    rune
	R, G, B uint8
}

// Packed returns the colour packed as 0xRRGGBB.
func (s StyledRune) Packed() uint32 {
	return uint32(s.R)<<16 | uint32(s.G)<<8 | uint32(s.B)
}

// StyledLine is one line of styled characters.
type StyledLine []StyledRune

// Grid holds the code points and packed colours of a Rows x Cols text area.
type Grid interface {
	// TerminalBuffer returns the code points row-major, Rows*Cols entries.
	//
	// Returns:
	//   - []uint32: a copy of the code point grid
	TerminalBuffer() []uint32

	// ColorBuffer returns the packed 0xRRGGBB colours row-major, Rows*Cols entries.
	//
	// Returns:
	//   - []uint32: a copy of the colour grid
	ColorBuffer() []uint32

	// RowsUsed returns the number of rows that received a line.
	RowsUsed() int

	// ColsUsed returns the widest written row in cells.
	ColsUsed() int

	// At returns the code point and colour of a cell.
	//
	// Parameters:
	//   - row: the row, 0 based
	//   - col: the column, 0 based
	//
	// Returns:
	//   - rune: the code point, 0 when empty or out of range
	//   - uint32: the packed colour
	At(row, col int) (rune, uint32)
}

type grid struct {
	chars    [Rows][Cols]uint32
	colors   [Rows][Cols]uint32
	rowsUsed int
	colsUsed int
}

var _ Grid = &grid{}

// NewGrid creates an empty grid with every cell set to the default colour.
//
// Returns:
//   - Grid: the empty grid
func NewGrid() Grid {
	return newGrid()
}

func newGrid() *grid {
	g := &grid{}
	for r := range g.colors {
		for c := range g.colors[r] {
			g.colors[r][c] = DefaultColor
		}
	}
	return g
}

// FromLines fills a grid from styled lines. Lines past Rows and characters past Cols are dropped.
//
// Parameters:
//   - lines: the styled lines, top to bottom
//
// Returns:
//   - Grid: the filled grid
func FromLines(lines []StyledLine) Grid {
	g := newGrid()
	for row, line := range lines {
		if row >= Rows {
			break
		}
		col := 0
		for _, sr := range line {
			if col >= Cols {
				break
			}
			g.chars[row][col] = uint32(sr.Char)
			g.colors[row][col] = sr.Packed()
			col++
		}
		g.colsUsed = max(g.colsUsed, col)
		g.rowsUsed = row + 1
	}
	return g
}

// BufferSize returns the byte size of one grid buffer.
func BufferSize() int {
	return Rows * Cols * 4
}

func (g *grid) TerminalBuffer() []uint32 {
	return flatten(&g.chars)
}

func (g *grid) ColorBuffer() []uint32 {
	return flatten(&g.colors)
}

func (g *grid) RowsUsed() int {
	return g.rowsUsed
}

func (g *grid) ColsUsed() int {
	return g.colsUsed
}

func (g *grid) At(row, col int) (rune, uint32) {
	if row < 0 || row >= Rows || col < 0 || col >= Cols {
		return 0, DefaultColor
	}
	return rune(g.chars[row][col]), g.colors[row][col]
}

func flatten(cells *[Rows][Cols]uint32) []uint32 {
	out := make([]uint32, 0, Rows*Cols)
	for r := range cells {
		out = append(out, cells[r][:]...)
	}
	return out
}
