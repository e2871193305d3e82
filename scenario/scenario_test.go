// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package scenario_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/2dChan/ehl/scenario"
	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
)

const sample = `version 1
0	arena.map	49	49	1	11	1	12	1
3	arena.map	49	49	10.5	3	44	40.25	52.55634918

`

func TestRead(t *testing.T) {
	got, err := scenario.Read(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Read(...) error = %v, want nil", err)
	}
	want := []scenario.Scenario{
		{Bucket: 0, Map: "arena.map", Width: 49, Height: 49, Start: r2.Point{X: 1, Y: 11}, Goal: r2.Point{X: 1, Y: 12}, Optimal: 1},
		{Bucket: 3, Map: "arena.map", Width: 49, Height: 49, Start: r2.Point{X: 10.5, Y: 3}, Goal: r2.Point{X: 44, Y: 40.25}, Optimal: 52.55634918},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Read(...) mismatch (-want +got):\n%s", diff)
	}
}

func TestRead_NoVersion(t *testing.T) {
	got, err := scenario.Read(strings.NewReader("1 m 2 2 0 0 1 1 1.5\n"))
	if err != nil {
		t.Fatalf("Read(...) error = %v, want nil", err)
	}
	if len(got) != 1 || got[0].Optimal != 1.5 {
		t.Errorf("Read(...) = %+v, want one scenario with optimal 1.5", got)
	}
}

func TestRead_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"few fields", "version 1\n0 m 1 1 0 0 1\n"},
		{"bad number", "0 m 1 1 0 x 1 1 1\n"},
		{"bad bucket", "a m 1 1 0 0 1 1 1\n"},
		{"late version", "0 m 1 1 0 0 1 1 1\nversion 1\n"},
		{"bad version", "version one\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := scenario.Read(strings.NewReader(tt.input)); !errors.Is(err, scenario.ErrMalformed) {
				t.Errorf("Read(...) error = %v, want %v", err, scenario.ErrMalformed)
			}
		})
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	want, err := scenario.Read(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := scenario.Write(&buf, want); err != nil {
		t.Fatalf("Write(...) error = %v, want nil", err)
	}
	got, err := scenario.Read(&buf)
	if err != nil {
		t.Fatalf("Read(...) error = %v, want nil", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_InvalidMap(t *testing.T) {
	if err := scenario.Write(&bytes.Buffer{}, []scenario.Scenario{{Map: "a b"}}); err == nil {
		t.Errorf("Write(...) error = nil, want non-nil")
	}
}
