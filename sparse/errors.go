// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import "errors"

// Sentinel errors returned by matrix construction. Callers match them with
// errors.Is; wrapping with context is done at the outer boundary.
var (
	// ErrBadShape is returned when a requested shape is invalid.
	ErrBadShape = errors.New("sparse: invalid shape")

	// ErrBadOffsets is returned when a row-offset array is not a valid
	// monotone CSR offset run starting at 0 and ending at nnz.
	ErrBadOffsets = errors.New("sparse: invalid row offsets")

	// ErrBadIndex is returned when a column index is outside [0, cols).
	ErrBadIndex = errors.New("sparse: column index out of range")

	// ErrDimensionMismatch is returned when parallel CSR arrays disagree
	// in length.
	ErrDimensionMismatch = errors.New("sparse: dimension mismatch")
)
