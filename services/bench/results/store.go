// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package results

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteAll writes the header and one line per row to w.
//
// Every field is double-quoted with embedded quotes doubled. Lines are
// separated by a single newline and the output does not end with one.
func WriteAll(w io.Writer, rows []Row) error {
	bw := bufio.NewWriter(w)

	writeLine(bw, Columns)
	for _, row := range rows {
		bw.WriteByte('\n')
		writeLine(bw, row.Record())
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}

func writeLine(bw *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteByte('"')
		bw.WriteString(strings.ReplaceAll(f, `"`, `""`))
		bw.WriteByte('"')
	}
}

// WriteFile writes rows to path, creating parent directories as needed.
//
// The file is opened once, written in full and closed. An existing file is
// truncated.
func WriteFile(path string, rows []Row) (err error) {
	if path == "" {
		return errors.New("output path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating result file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing result file: %w", cerr)
		}
	}()

	return WriteAll(f, rows)
}

// Read parses a result file.
//
// Description:
//
//	Uses a standard CSV reader, so quoted and unquoted fields are both
//	accepted. The first record must match Columns, ignoring surrounding
//	spaces. A file with only a header yields no rows.
//
// Outputs:
//   - []Row: Rows in file order, with two-decimal statistics.
//   - error: ErrBadHeader or ErrMalformedRow, wrapped with the line number.
func Read(r io.Reader) ([]Row, error) {
	rows, _, err := ReadRecords(r)
	return rows, err
}

// ReadRecords is Read that also returns each row's cells as they appear
// in the file, for display without re-formatting.
func ReadRecords(r io.Reader) ([]Row, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: empty file", ErrBadHeader)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if err := checkHeader(header); err != nil {
		return nil, nil, err
	}

	var (
		rows  []Row
		cells [][]string
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
		row, err := ParseRecord(rec)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
		cells = append(cells, rec)
	}
	return rows, cells, nil
}

func checkHeader(header []string) error {
	if len(header) != len(Columns) {
		return fmt.Errorf("%w: %v", ErrBadHeader, header)
	}
	for i, col := range Columns {
		if strings.TrimSpace(header[i]) != col {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i, header[i], col)
		}
	}
	return nil
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string) ([]Row, error) {
	rows, _, err := ReadFileRecords(path)
	return rows, err
}

// ReadFileRecords opens path and parses it with ReadRecords.
func ReadFileRecords(path string) ([]Row, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening result file: %w", err)
	}
	defer f.Close()

	rows, cells, err := ReadRecords(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, cells, nil
}
