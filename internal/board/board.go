package board

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CellMine    byte = '9'
	CellOpening byte = '0'
)

var (
	ErrEmpty   = errors.New("board: empty grid")
	ErrJagged  = errors.New("board: rows have different lengths")
	ErrBadCell = errors.New("board: cell is not a digit")
)

// Board is a revealed grid of single-character cell codes, indexed [row][col]
type Board [][]byte

// Parse turns row strings into a Board. The grid must be non-empty and rectangular.
func Parse(rows []string) (Board, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmpty
	}

	width := len(rows[0])
	b := make(Board, len(rows))
	for r, line := range rows {
		if len(line) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrJagged, r, len(line), width)
		}
		row := make([]byte, width)
		for c := 0; c < width; c++ {
			ch := line[c]
			if ch < '0' || ch > '9' {
				return nil, fmt.Errorf("%w: %q at (%d, %d)", ErrBadCell, ch, r, c)
			}
			row[c] = ch
		}
		b[r] = row
	}
	return b, nil
}

// ParseCells parses the wire form of a board: the first element holds every row joined
// by '-' and terminated by a trailing '-'. A missing terminator is rejected.
func ParseCells(cells []string) (Board, error) {
	if len(cells) == 0 {
		return nil, ErrEmpty
	}
	parts := strings.Split(cells[0], "-")
	if len(parts) < 2 {
		return nil, ErrEmpty
	}
	if parts[len(parts)-1] != "" {
		return nil, ErrJagged
	}
	return Parse(parts[:len(parts)-1])
}

func (b Board) Rows() int {
	return len(b)
}

func (b Board) Columns() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// String renders the grid one row per line
func (b Board) String() string {
	var sb strings.Builder
	for r, row := range b {
		if r > 0 {
			sb.WriteByte('\n')
		}
		sb.Write(row)
	}
	return sb.String()
}
