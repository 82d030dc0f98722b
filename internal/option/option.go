// Package option maps the toolbar enumerations between the symbols stored in
// the settings file and the selector indices used by the UI.
package option

import "fmt"

// Table is a closed, ordered enumeration of persisted symbols.
// The index of a symbol in the table is its selector index.
type Table struct {
	name    string
	symbols []string
	index   map[string]int
}

func newTable(name string, symbols ...string) *Table {
	t := &Table{
		name:    name,
		symbols: symbols,
		index:   make(map[string]int, len(symbols)),
	}
	for i, s := range symbols {
		t.index[s] = i
	}
	return t
}

// Toolbar position symbols.
const (
	TopLeft      = "Top left corner"
	TopCenter    = "Top center"
	TopRight     = "Top right corner"
	BottomLeft   = "Bottom left corner"
	BottomCenter = "Bottom center"
	BottomRight  = "Bottom right corner"
)

// Toolbar monitor symbols.
const (
	MainMonitor = "Main monitor"
	AllMonitors = "All monitors"
)

var (
	// ToolbarPosition is the toolbar corner enumeration (indices 0..5).
	ToolbarPosition = newTable("toolbar position", TopLeft, TopCenter, TopRight, BottomLeft, BottomCenter, BottomRight)

	// ToolbarMonitor is the toolbar monitor enumeration (indices 0..1).
	ToolbarMonitor = newTable("toolbar monitor", MainMonitor, AllMonitors)
)

// Len returns the number of symbols in the table.
func (t *Table) Len() int {
	return len(t.symbols)
}

// Valid reports whether index names a symbol.
func (t *Table) Valid(index int) bool {
	return index >= 0 && index < len(t.symbols)
}

// Encode returns the symbol for index. Indices come from validated selectors,
// so an out-of-range index is a programming error and panics.
func (t *Table) Encode(index int) string {
	if !t.Valid(index) {
		panic(fmt.Sprintf("option: %s index %d out of range [0,%d)", t.name, index, len(t.symbols)))
	}
	return t.symbols[index]
}

// Decode returns the index of symbol. ok is false for an unknown symbol and
// the caller must keep whatever index it already has.
func (t *Table) Decode(symbol string) (index int, ok bool) {
	index, ok = t.index[symbol]
	return index, ok
}

// Symbols returns a copy of the table's symbols in index order.
func (t *Table) Symbols() []string {
	out := make([]string, len(t.symbols))
	copy(out, t.symbols)
	return out
}
