// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package mesh

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Grid is an octile grid map. Cell (x, y) covers [x, x+1] x [y, y+1].
type Grid struct {
	Width   int
	Height  int
	Blocked []bool
}

// IsBlocked reports whether cell (x, y) is an obstacle. Cells outside the map
// are obstacles.
func (g *Grid) IsBlocked(x, y int) bool {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return true
	}
	return g.Blocked[y*g.Width+x]
}

// ReadGrid parses a movingai octile map:
//
//	type octile
//	height H
//	width W
//	map
//	<H rows of W cells>
//
// '.', 'G' and 'S' are traversable, everything else blocks.
func ReadGrid(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	g := &Grid{}
	header := true
	row := 0
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if header {
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "type":
			case "height", "width":
				if len(fields) != 2 {
					return nil, fmt.Errorf("%w: grid header %q", ErrMalformed, line)
				}
				v, err := strconv.Atoi(fields[1])
				if err != nil || v <= 0 {
					return nil, fmt.Errorf("%w: grid header %q", ErrMalformed, line)
				}
				if fields[0] == "height" {
					g.Height = v
				} else {
					g.Width = v
				}
			case "map":
				if g.Width == 0 || g.Height == 0 {
					return nil, fmt.Errorf("%w: grid map before dimensions", ErrMalformed)
				}
				g.Blocked = make([]bool, g.Width*g.Height)
				header = false
			default:
				return nil, fmt.Errorf("%w: grid header %q", ErrMalformed, line)
			}
			continue
		}
		if row >= g.Height {
			if strings.TrimSpace(line) == "" {
				continue
			}
			return nil, fmt.Errorf("%w: grid has more than %d rows", ErrMalformed, g.Height)
		}
		if len(line) != g.Width {
			return nil, fmt.Errorf("%w: grid row %d has %d cells, want %d", ErrMalformed, row, len(line), g.Width)
		}
		for x := range g.Width {
			switch line[x] {
			case '.', 'G', 'S':
			default:
				g.Blocked[row*g.Width+x] = true
			}
		}
		row++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if header || row != g.Height {
		return nil, fmt.Errorf("%w: grid has %d rows, want %d", ErrMalformed, row, g.Height)
	}
	return g, nil
}

// MarkTurningPoints flags corner vertices that sit on a grid point with
// exactly one blocked cell among the four around it, the convex obstacle
// corners of the map. A grid point with two diagonally blocked cells is a
// turning point too, but it is ambiguous and stays unflagged.
func (m *Mesh) MarkTurningPoints(g *Grid) {
	for v := range m.Vertices {
		vert := &m.Vertices[v]
		vert.IsTurning = false
		if !vert.IsCorner || vert.IsAmbig {
			continue
		}
		x, y := vert.P.X, vert.P.Y
		if x != math.Trunc(x) || y != math.Trunc(y) {
			continue
		}
		ix, iy := int(x), int(y)
		blocked := 0
		for _, c := range [4][2]int{{ix - 1, iy - 1}, {ix, iy - 1}, {ix - 1, iy}, {ix, iy}} {
			if g.IsBlocked(c[0], c[1]) {
				blocked++
			}
		}
		vert.IsTurning = blocked == 1
	}
}
