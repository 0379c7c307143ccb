// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mtx reads and writes sparse matrices and vectors in a plain-text
// coordinate format. Lines starting with '%' are comments; the first data
// line is "rows cols nonzeros"; every following line is "row col [value]"
// with 1-based indices. An omitted matrix value defaults to 1, and vectors
// must have col == 1 throughout. Writers emit a fixed three-line banner and
// only the nonzero entries.
package mtx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/numerical-fun/ParGMRES/sparse"
)

var (
	// ErrBadHeader is returned when the size line is missing or malformed.
	ErrBadHeader = errors.New("mtx: invalid header")

	// ErrBadEntry is returned when a coordinate line is malformed or its
	// indices fall outside the declared shape.
	ErrBadEntry = errors.New("mtx: invalid entry")

	// ErrNotVector is returned when a file read as a vector has more than
	// one column.
	ErrNotVector = errors.New("mtx: not a column vector")
)

const banner = "%%MatrixMarket matrix coordinate real general\n" +
	"%-------------------------------------------------------------------------------\n" +
	"%-------------------------------------------------------------------------------\n"

// ReadMatrix parses a sparse matrix in coordinate form.
func ReadMatrix(r io.Reader) (*sparse.Matrix, error) {
	var (
		coo     *sparse.COO
		rows    int
		cols    int
		scanner = bufio.NewScanner(r)
		lineno  int
	)
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '%' {
			continue
		}
		fields := strings.Fields(line)
		if coo == nil {
			var err error
			rows, cols, _, err = parseHeader(fields)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineno, err)
			}
			coo = sparse.NewCOO(rows, cols)
			continue
		}
		i, j, v, err := parseEntry(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		if i < 1 || rows < i || j < 1 || cols < j {
			return nil, fmt.Errorf("line %d: %w: (%d, %d) outside %dx%d", lineno, ErrBadEntry, i, j, rows, cols)
		}
		coo.Append(i-1, j-1, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mtx: %w", err)
	}
	if coo == nil {
		return nil, fmt.Errorf("%w: no size line", ErrBadHeader)
	}
	return coo.ToCSR(), nil
}

// ReadVector parses a column vector in coordinate form. Entries not present
// in the file are zero.
func ReadVector(r io.Reader) ([]float64, error) {
	var (
		vec     []float64
		scanner = bufio.NewScanner(r)
		lineno  int
	)
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '%' {
			continue
		}
		fields := strings.Fields(line)
		if vec == nil {
			rows, cols, _, err := parseHeader(fields)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineno, err)
			}
			if cols != 1 {
				return nil, fmt.Errorf("line %d: %w: %d columns", lineno, ErrNotVector, cols)
			}
			vec = make([]float64, rows)
			continue
		}
		i, j, v, err := parseEntry(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		if j != 1 {
			return nil, fmt.Errorf("line %d: %w: column %d", lineno, ErrNotVector, j)
		}
		if i < 1 || len(vec) < i {
			return nil, fmt.Errorf("line %d: %w: row %d outside %d", lineno, ErrBadEntry, i, len(vec))
		}
		vec[i-1] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mtx: %w", err)
	}
	if vec == nil {
		return nil, fmt.Errorf("%w: no size line", ErrBadHeader)
	}
	return vec, nil
}

// WriteMatrix writes the banner, the size line with the count of entries
// actually emitted, and every nonzero entry in storage order.
func WriteMatrix(w io.Writer, m *sparse.Matrix) error {
	count := 0
	for _, v := range m.Values {
		if v != 0 {
			count++
		}
	}
	bw := bufio.NewWriter(w)
	bw.WriteString(banner)
	fmt.Fprintf(bw, "%d %d %d\n", m.Rows, m.Cols, count)
	for i := 0; i < m.Rows; i++ {
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			if m.Values[k] == 0 {
				continue
			}
			fmt.Fprintf(bw, "%d %d %s\n", i+1, m.ColIndex[k]+1, formatValue(m.Values[k]))
		}
	}
	return bw.Flush()
}

// WriteVector writes a column vector, dropping zero entries. The size line
// reports the full length, matching the historical format of the tools this
// package interoperates with.
func WriteVector(w io.Writer, vec []float64) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(banner)
	fmt.Fprintf(bw, "%d 1 %d\n", len(vec), len(vec))
	for i, v := range vec {
		if v != 0 {
			fmt.Fprintf(bw, "%d 1 %s\n", i+1, formatValue(v))
		}
	}
	return bw.Flush()
}

// LoadMatrix reads a matrix from path.
func LoadMatrix(path string) (*sparse.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mtx: %w", err)
	}
	defer f.Close()
	m, err := ReadMatrix(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LoadVector reads a column vector from path.
func LoadVector(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mtx: %w", err)
	}
	defer f.Close()
	v, err := ReadVector(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// SaveMatrix writes a matrix to path.
func SaveMatrix(path string, m *sparse.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("mtx: %w", err)
	}
	if err := WriteMatrix(f, m); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// SaveVector writes a column vector to path.
func SaveVector(path string, vec []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("mtx: %w", err)
	}
	if err := WriteVector(f, vec); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

func parseHeader(fields []string) (rows, cols, nnz int, err error) {
	if len(fields) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: %d fields", ErrBadHeader, len(fields))
	}
	rows, err = strconv.Atoi(fields[0])
	if err == nil {
		cols, err = strconv.Atoi(fields[1])
	}
	if err == nil {
		nnz, err = strconv.Atoi(fields[2])
	}
	if err != nil || rows < 0 || cols < 0 || nnz < 0 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrBadHeader, strings.Join(fields, " "))
	}
	return rows, cols, nnz, nil
}

// parseEntry parses "row col [value]"; a missing value defaults to 1.
func parseEntry(fields []string) (i, j int, v float64, err error) {
	if len(fields) != 2 && len(fields) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: %d fields", ErrBadEntry, len(fields))
	}
	i, err = strconv.Atoi(fields[0])
	if err == nil {
		j, err = strconv.Atoi(fields[1])
	}
	v = 1
	if err == nil && len(fields) == 3 {
		v, err = strconv.ParseFloat(fields[2], 64)
	}
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrBadEntry, strings.Join(fields, " "))
	}
	return i, j, v, nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
