package board

// Result summarises the structure of a revealed board.
// BV is the minimum number of reveal clicks needed to clear it: one per opening plus one
// per numbered cell that no opening exposes.
type Result struct {
	Rows     int
	Columns  int
	Mines    int
	Openings int
	Isolated int
	Islands  int
	BV       int

	// IsolatedIslands counts 8-connected groups among the isolated cells only
	IsolatedIslands int
}

type cellPos struct {
	row, col int
}

// Analyze computes mines, openings, isolated cells, islands and BV for a board
func Analyze(b Board) Result {
	res := Result{
		Rows:    b.Rows(),
		Columns: b.Columns(),
	}

	visited := newMarker(res.Rows, res.Columns)
	res.Mines = countMines(b, visited)
	res.Openings = countOpenings(b, visited)
	res.Isolated = countUnvisited(visited)
	res.BV = res.Openings + res.Isolated
	res.IsolatedIslands = countComponents(visited)
	res.Islands = countComponents(newMarker(res.Rows, res.Columns))
	return res
}

func newMarker(rows, cols int) [][]bool {
	m := make([][]bool, rows)
	for i := range m {
		m[i] = make([]bool, cols)
	}
	return m
}

// forEachNeighbor calls fn for each in-bounds cell among the 8 around (row, col)
func forEachNeighbor(rows, cols, row, col int, fn func(r, c int)) {
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			r, c := row+dr, col+dc
			if r >= 0 && r < rows && c >= 0 && c < cols {
				fn(r, c)
			}
		}
	}
}

func countMines(b Board, visited [][]bool) int {
	mines := 0
	for r, row := range b {
		for c, cell := range row {
			if cell == CellMine {
				mines++
				visited[r][c] = true
			}
		}
	}
	return mines
}

// countOpenings seeds one search per unvisited zero cell. Numbered cells on the border of
// a zero region are absorbed but never expanded.
func countOpenings(b Board, visited [][]bool) int {
	rows, cols := b.Rows(), b.Columns()
	openings := 0
	stack := make([]cellPos, 0, rows*cols)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if b[r][c] != CellOpening || visited[r][c] {
				continue
			}
			openings++
			visited[r][c] = true
			stack = append(stack[:0], cellPos{r, c})

			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if b[cur.row][cur.col] != CellOpening {
					continue
				}
				forEachNeighbor(rows, cols, cur.row, cur.col, func(nr, nc int) {
					if !visited[nr][nc] {
						visited[nr][nc] = true
						stack = append(stack, cellPos{nr, nc})
					}
				})
			}
		}
	}
	return openings
}

func countUnvisited(visited [][]bool) int {
	n := 0
	for _, row := range visited {
		for _, v := range row {
			if !v {
				n++
			}
		}
	}
	return n
}

// countComponents counts 8-connected groups of unmarked cells, marking them as it goes
func countComponents(marker [][]bool) int {
	rows := len(marker)
	if rows == 0 {
		return 0
	}
	cols := len(marker[0])
	components := 0
	var stack []cellPos

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if marker[r][c] {
				continue
			}
			components++
			marker[r][c] = true
			stack = append(stack[:0], cellPos{r, c})

			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				forEachNeighbor(rows, cols, cur.row, cur.col, func(nr, nc int) {
					if !marker[nr][nc] {
						marker[nr][nc] = true
						stack = append(stack, cellPos{nr, nc})
					}
				})
			}
		}
	}
	return components
}
