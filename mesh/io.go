// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package mesh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Read parses a mesh in the polyanya "mesh 2" text format:
//
//	mesh
//	2
//	V P
//	x y n p1 ... pn      (V vertex lines, CCW incident polygons, -1 for obstacles)
//	n v1 ... vn p1 ... pn (P polygon lines)
//
// In the file, pi is the polygon across the edge ending at vi. The returned
// mesh has finalized topology.
func Read(r io.Reader) (*Mesh, error) {
	tr := newTokenReader(r)
	if tok := tr.next(); tok != "mesh" {
		return nil, fmt.Errorf("%w: header %q, want \"mesh\"", ErrMalformed, tok)
	}
	if version := tr.readInt(); tr.err == nil && version != 2 {
		return nil, fmt.Errorf("%w: version %d, want 2", ErrMalformed, version)
	}
	numVertices := tr.readInt()
	numPolygons := tr.readInt()
	if tr.err != nil {
		return nil, tr.err
	}
	if numVertices < 3 || numPolygons < 1 {
		return nil, fmt.Errorf("%w: %d vertices and %d polygons", ErrMalformed, numVertices, numPolygons)
	}

	m := &Mesh{
		Vertices: make([]Vertex, numVertices),
		Polygons: make([]Polygon, numPolygons),
	}
	for i := range numVertices {
		v := &m.Vertices[i]
		v.P.X = tr.readFloat()
		v.P.Y = tr.readFloat()
		n := tr.readInt()
		if tr.err != nil {
			return nil, tr.err
		}
		if n < 1 {
			return nil, fmt.Errorf("%w: vertex %d has %d polygons", ErrMalformed, i, n)
		}
		v.Polygons = make([]int, n)
		for j := range n {
			p := tr.readInt()
			if tr.err == nil && (p < -1 || p >= numPolygons) {
				return nil, fmt.Errorf("%w: vertex %d polygon %d out of range [-1 %d)", ErrMalformed, i, p, numPolygons)
			}
			v.Polygons[j] = p
		}
	}
	for i := range numPolygons {
		poly := &m.Polygons[i]
		n := tr.readInt()
		if tr.err != nil {
			return nil, tr.err
		}
		if n < 3 {
			return nil, fmt.Errorf("%w: polygon %d has %d vertices", ErrMalformed, i, n)
		}
		poly.Vertices = make([]int, n)
		poly.Neighbors = make([]int, n)
		for j := range n {
			v := tr.readInt()
			if tr.err == nil && (v < 0 || v >= numVertices) {
				return nil, fmt.Errorf("%w: polygon %d vertex %d out of range [0 %d)", ErrMalformed, i, v, numVertices)
			}
			poly.Vertices[j] = v
		}
		for j := range n {
			p := tr.readInt()
			if tr.err == nil && (p < -1 || p >= numPolygons) {
				return nil, fmt.Errorf("%w: polygon %d neighbor %d out of range [-1 %d)", ErrMalformed, i, p, numPolygons)
			}
			// The file lists the neighbor across the edge ending at vertex j.
			poly.Neighbors[(j+n-1)%n] = p
		}
	}
	if tr.err != nil {
		return nil, tr.err
	}
	if tok := tr.next(); tok != "" {
		return nil, fmt.Errorf("%w: trailing data %q", ErrMalformed, tok)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := m.FinalizeTopology(); err != nil {
		return nil, err
	}
	return m, nil
}

// Write serializes m in the format accepted by Read. Coordinates use the
// shortest representation that parses back to the same float64.
func (m *Mesh) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "mesh\n2\n%d %d\n", len(m.Vertices), len(m.Polygons))
	for i := range m.Vertices {
		v := &m.Vertices[i]
		bw.WriteString(formatFloat(v.P.X))
		bw.WriteByte(' ')
		bw.WriteString(formatFloat(v.P.Y))
		fmt.Fprintf(bw, " %d", len(v.Polygons))
		for _, p := range v.Polygons {
			fmt.Fprintf(bw, " %d", p)
		}
		bw.WriteByte('\n')
	}
	for i := range m.Polygons {
		poly := &m.Polygons[i]
		n := len(poly.Vertices)
		fmt.Fprintf(bw, "%d", n)
		for _, v := range poly.Vertices {
			fmt.Fprintf(bw, " %d", v)
		}
		for j := range n {
			fmt.Fprintf(bw, " %d", poly.Neighbors[(j+n-1)%n])
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

type tokenReader struct {
	sc  *bufio.Scanner
	err error
}

func newTokenReader(r io.Reader) *tokenReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)
	return &tokenReader{sc: sc}
}

func (tr *tokenReader) next() string {
	if tr.err != nil {
		return ""
	}
	if !tr.sc.Scan() {
		if err := tr.sc.Err(); err != nil {
			tr.err = err
		}
		return ""
	}
	return tr.sc.Text()
}

func (tr *tokenReader) readInt() int {
	tok := tr.next()
	if tr.err != nil {
		return 0
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		tr.err = fmt.Errorf("%w: integer %q", ErrMalformed, tok)
	}
	return v
}

func (tr *tokenReader) readFloat() float64 {
	tok := tr.next()
	if tr.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		tr.err = fmt.Errorf("%w: number %q", ErrMalformed, tok)
	}
	return v
}
