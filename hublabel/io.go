// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package hublabel

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// ReadLabels parses raw labels:
//
//	labels N M
//	vertex hub distance predecessor first_node   (M lines)
//
// N is the number of oracle ids. Entries of one vertex may appear anywhere
// but must be in ascending hub order.
func ReadLabels(r io.Reader) (Labels, error) {
	tr := newTokens(r)
	if tok := tr.next(); tok != "labels" {
		return nil, fmt.Errorf("%w: header %q, want \"labels\"", ErrMalformed, tok)
	}
	n := tr.readInt()
	cnt := tr.readInt()
	if tr.err != nil {
		return nil, tr.err
	}
	if n < 0 || cnt < 0 {
		return nil, fmt.Errorf("%w: %d vertices and %d labels", ErrMalformed, n, cnt)
	}
	ls := make(Labels, n)
	for range cnt {
		v := tr.readInt()
		l := Label{Hub: tr.readInt(), Distance: tr.readFloat(), Pred: tr.readInt(), First: tr.readInt()}
		if tr.err != nil {
			return nil, tr.err
		}
		if v < 0 || v >= n {
			return nil, fmt.Errorf("%w: vertex %d out of range [0 %d)", ErrMalformed, v, n)
		}
		ls[v] = append(ls[v], l)
	}
	if tok := tr.next(); tok != "" {
		return nil, fmt.Errorf("%w: trailing data %q", ErrMalformed, tok)
	}
	if tr.err != nil {
		return nil, tr.err
	}
	if err := ls.Validate(); err != nil {
		return nil, err
	}
	return ls, nil
}

// WriteLabels writes ls in the format accepted by ReadLabels.
func WriteLabels(w io.Writer, ls Labels) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "labels %d %d\n", len(ls), ls.Size())
	for v, list := range ls {
		for _, l := range list {
			fmt.Fprintf(bw, "%d %d %s %d %d\n", v, l.Hub,
				strconv.FormatFloat(l.Distance, 'g', -1, 64), l.Pred, l.First)
		}
	}
	return bw.Flush()
}

// ReadOrder parses an order file:
//
//	order N
//	mesh_vertex   (N lines, line i belongs to oracle id i)
func ReadOrder(r io.Reader) ([]int, error) {
	tr := newTokens(r)
	if tok := tr.next(); tok != "order" {
		return nil, fmt.Errorf("%w: header %q, want \"order\"", ErrMalformed, tok)
	}
	n := tr.readInt()
	if tr.err != nil {
		return nil, tr.err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: order of %d ids", ErrMalformed, n)
	}
	order := make([]int, n)
	seen := make(map[int]bool, n)
	for i := range order {
		order[i] = tr.readInt()
		if tr.err != nil {
			return nil, tr.err
		}
		if order[i] < 0 || seen[order[i]] {
			return nil, fmt.Errorf("%w: order entry %d = %d", ErrMalformed, i, order[i])
		}
		seen[order[i]] = true
	}
	if tok := tr.next(); tok != "" {
		return nil, fmt.Errorf("%w: trailing data %q", ErrMalformed, tok)
	}
	return order, tr.err
}

// WriteOrder writes order in the format accepted by ReadOrder.
func WriteOrder(w io.Writer, order []int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "order %d\n", len(order))
	for _, v := range order {
		fmt.Fprintf(bw, "%d\n", v)
	}
	return bw.Flush()
}

type tokens struct {
	sc  *bufio.Scanner
	err error
}

func newTokens(r io.Reader) *tokens {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)
	return &tokens{sc: sc}
}

func (t *tokens) next() string {
	if t.err != nil {
		return ""
	}
	if !t.sc.Scan() {
		t.err = t.sc.Err()
		return ""
	}
	return t.sc.Text()
}

func (t *tokens) readInt() int {
	tok := t.next()
	if t.err != nil {
		return 0
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		t.err = fmt.Errorf("%w: integer %q", ErrMalformed, tok)
	}
	return v
}

func (t *tokens) readFloat() float64 {
	tok := t.next()
	if t.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		t.err = fmt.Errorf("%w: number %q", ErrMalformed, tok)
	}
	return v
}
