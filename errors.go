// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package ehl

import "fmt"

// MismatchError reports an index loaded for parameters it was not built
// with.
type MismatchError struct {
	Lambda, Depth         int
	WantLambda, WantDepth int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("ehl: index has lambda %d and depth %d, want %d and %d",
		e.Lambda, e.Depth, e.WantLambda, e.WantDepth)
}

func (e *MismatchError) Unwrap() error {
	return ErrIndexMismatch
}

func indexError(name string, i, n int) error {
	return fmt.Errorf("%s: index %d out of range [0 %d)", name, i, n)
}
