package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Breakpoint is a named viewport-width tier.
type Breakpoint string

const (
	BreakpointXXS Breakpoint = "xxs"
	BreakpointXS  Breakpoint = "xs"
	BreakpointSM  Breakpoint = "sm"
	BreakpointMD  Breakpoint = "md"
	BreakpointLG  Breakpoint = "lg"
	BreakpointXL  Breakpoint = "xl"
)

// Breakpoints lists every breakpoint from smallest to largest.
var Breakpoints = []Breakpoint{
	BreakpointXXS,
	BreakpointXS,
	BreakpointSM,
	BreakpointMD,
	BreakpointLG,
	BreakpointXL,
}

// SmallestBreakpoint is the only breakpoint seeded when a box is added.
const SmallestBreakpoint = BreakpointXXS

// Valid reports whether the breakpoint is known.
func (b Breakpoint) Valid() bool {
	for _, known := range Breakpoints {
		if b == known {
			return true
		}
	}
	return false
}

// ParseBreakpoint converts user input into a Breakpoint.
func ParseBreakpoint(value string) (Breakpoint, error) {
	bp := Breakpoint(strings.ToLower(strings.TrimSpace(value)))
	if !bp.Valid() {
		return "", fmt.Errorf("unknown breakpoint %q", value)
	}
	return bp, nil
}

// LayoutItem places one box inside one breakpoint's grid, in grid cells.
type LayoutItem struct {
	BoxID string `json:"i"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	W     int    `json:"w"`
	H     int    `json:"h"`
}

// UnmarshalJSON accepts box ids encoded as strings or numbers.
func (l *LayoutItem) UnmarshalJSON(data []byte) error {
	type itemAlias LayoutItem
	var raw struct {
		itemAlias
		BoxID json.RawMessage `json:"i"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = LayoutItem(raw.itemAlias)
	l.BoxID = decodeID(raw.BoxID)
	return nil
}

// LayoutTable maps each breakpoint to its ordered layout sequence.
type LayoutTable map[Breakpoint][]LayoutItem

// NewLayoutTable returns a table with an empty sequence for every breakpoint.
func NewLayoutTable() LayoutTable {
	table := make(LayoutTable, len(Breakpoints))
	for _, bp := range Breakpoints {
		table[bp] = []LayoutItem{}
	}
	return table
}

// Clone returns a deep copy of the table, with every breakpoint present.
func (t LayoutTable) Clone() LayoutTable {
	out := NewLayoutTable()
	for bp, items := range t {
		out[bp] = append([]LayoutItem{}, items...)
	}
	return out
}

// Find returns the record for boxID at bp.
func (t LayoutTable) Find(bp Breakpoint, boxID string) (LayoutItem, bool) {
	for _, item := range t[bp] {
		if item.BoxID == boxID {
			return item, true
		}
	}
	return LayoutItem{}, false
}

// UnmarshalJSON ignores unknown breakpoints and undecodable records, and
// always yields a sequence for every breakpoint.
func (t *LayoutTable) UnmarshalJSON(data []byte) error {
	out := NewLayoutTable()
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = out
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		bp, err := ParseBreakpoint(key)
		if err != nil {
			continue
		}
		out[bp] = DecodeLayoutItems(value)
	}
	*t = out
	return nil
}

// DecodeLayoutItems decodes a sequence of layout records, skipping entries
// that cannot be decoded.
func DecodeLayoutItems(data []byte) []LayoutItem {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return []LayoutItem{}
	}
	items := make([]LayoutItem, 0, len(entries))
	for _, entry := range entries {
		var item LayoutItem
		if err := json.Unmarshal(entry, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

// Board is a full persisted document: the box collection plus layouts.
type Board struct {
	Boxes   BoxSet      `json:"boxes"`
	Layouts LayoutTable `json:"layouts"`
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	return &Board{Boxes: b.Boxes.Clone(), Layouts: b.Layouts.Clone()}
}
