// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package visibility

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/golang/geo/r2"
)

var (
	ErrMalformed = errors.New("visibility: malformed areas")
)

// WriteAreas writes areas as text:
//
//	areas N
//	v n0 x y ... n1 x y ...   (one line per area)
//
// Coordinates use the shortest form that parses back to the same float64.
func WriteAreas(w io.Writer, areas []Area) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "areas %d\n", len(areas))
	for _, a := range areas {
		bw.WriteString(strconv.Itoa(a.Vertex))
		for _, loop := range a.Loops {
			fmt.Fprintf(bw, " %d", len(loop))
			for _, p := range loop {
				bw.WriteByte(' ')
				bw.WriteString(strconv.FormatFloat(p.X, 'g', -1, 64))
				bw.WriteByte(' ')
				bw.WriteString(strconv.FormatFloat(p.Y, 'g', -1, 64))
			}
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ReadAreas parses the format written by WriteAreas.
func ReadAreas(r io.Reader) ([]Area, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)
	next := func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("%w: unexpected end of input", ErrMalformed)
		}
		return sc.Text(), nil
	}
	nextInt := func() (int, error) {
		tok, err := next()
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(tok)
		if err != nil {
			return 0, fmt.Errorf("%w: integer %q", ErrMalformed, tok)
		}
		return v, nil
	}
	nextFloat := func() (float64, error) {
		tok, err := next()
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: number %q", ErrMalformed, tok)
		}
		return v, nil
	}

	if tok, err := next(); err != nil || tok != "areas" {
		return nil, fmt.Errorf("%w: header %q, want \"areas\"", ErrMalformed, tok)
	}
	n, err := nextInt()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: %d areas", ErrMalformed, n)
	}
	areas := make([]Area, n)
	for i := range areas {
		if areas[i].Vertex, err = nextInt(); err != nil {
			return nil, err
		}
		for k := range areas[i].Loops {
			cnt, err := nextInt()
			if err != nil {
				return nil, err
			}
			if cnt < 0 {
				return nil, fmt.Errorf("%w: area %d loop of %d points", ErrMalformed, i, cnt)
			}
			loop := make([]r2.Point, cnt)
			for j := range loop {
				if loop[j].X, err = nextFloat(); err != nil {
					return nil, err
				}
				if loop[j].Y, err = nextFloat(); err != nil {
					return nil, err
				}
			}
			areas[i].Loops[k] = loop
		}
	}
	if sc.Scan() {
		return nil, fmt.Errorf("%w: trailing data %q", ErrMalformed, sc.Text())
	}
	return areas, sc.Err()
}
