// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package scenario reads and writes query batches in the movingai ".scen"
// text format.
package scenario

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"
)

var ErrMalformed = errors.New("scenario: malformed input")

// Scenario is one query of a batch. Optimal is the distance reported by the
// benchmark, which for grid benchmarks is the octile and not the Euclidean
// distance.
type Scenario struct {
	Bucket        int
	Map           string
	Width, Height int
	Start, Goal   r2.Point
	Optimal       float64
}

// Read parses a scenario file:
//
//	version 1
//	bucket map width height sx sy gx gy optimal
//
// The version line is optional. Blank lines are skipped.
func Read(r io.Reader) ([]Scenario, error) {
	sc := bufio.NewScanner(r)
	var out []Scenario
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "version" {
			if line != 1 || len(fields) != 2 {
				return nil, fmt.Errorf("%w: line %d: unexpected version line", ErrMalformed, line)
			}
			if v, err := strconv.ParseFloat(fields[1], 64); err != nil || v < 1 {
				return nil, fmt.Errorf("%w: line %d: version %q", ErrMalformed, line, fields[1])
			}
			continue
		}
		if len(fields) != 9 {
			return nil, fmt.Errorf("%w: line %d: %d fields, want 9", ErrMalformed, line, len(fields))
		}
		s, err := parse(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformed, line, err)
		}
		out = append(out, s)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parse(fields []string) (Scenario, error) {
	var ints [3]int
	for i, j := range []int{0, 2, 3} {
		v, err := strconv.Atoi(fields[j])
		if err != nil {
			return Scenario{}, err
		}
		ints[i] = v
	}
	var floats [5]float64
	for i := range floats {
		v, err := strconv.ParseFloat(fields[4+i], 64)
		if err != nil {
			return Scenario{}, err
		}
		floats[i] = v
	}
	return Scenario{
		Bucket:  ints[0],
		Map:     fields[1],
		Width:   ints[1],
		Height:  ints[2],
		Start:   r2.Point{X: floats[0], Y: floats[1]},
		Goal:    r2.Point{X: floats[2], Y: floats[3]},
		Optimal: floats[4],
	}, nil
}

// Write serializes scens in the format accepted by Read.
func Write(w io.Writer, scens []Scenario) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("version 1\n")
	for _, s := range scens {
		if s.Map == "" || strings.ContainsAny(s.Map, " \t\n") {
			return fmt.Errorf("scenario: invalid map name %q", s.Map)
		}
		fmt.Fprintf(bw, "%d\t%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			s.Bucket, s.Map, s.Width, s.Height,
			formatFloat(s.Start.X), formatFloat(s.Start.Y),
			formatFloat(s.Goal.X), formatFloat(s.Goal.Y),
			formatFloat(s.Optimal))
	}
	return bw.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
