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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleRows = []Row{
	{Key: "plain_arr_push_10_1000", System: "go", Description: "mutable", Runs: 3, Minimum: 1, Maximum: 3, Mean: 2, Median: 2.5},
	{Key: "send_more_money_1", System: "go", Description: `quote "q"`, Runs: 1, Minimum: 10.126, Maximum: 10.126, Mean: 10.126, Median: 10.126},
}

func TestWriteAll(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAll(&buf, sampleRows))

	want := strings.Join([]string{
		`"key","sys","desc","runs","minimum","maximum","mean","median"`,
		`"plain_arr_push_10_1000","go","mutable","3","1.00","3.00","2.00","2.50"`,
		`"send_more_money_1","go","quote ""q""","1","10.13","10.13","10.13","10.13"`,
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWriteAll_NoRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAll(&buf, nil))
	assert.Equal(t, `"key","sys","desc","runs","minimum","maximum","mean","median"`, buf.String())

	rows, err := Read(&buf)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriteFile_ReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "go.csv")
	require.NoError(t, WriteFile(path, sampleRows))

	rows, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, rows, len(sampleRows))
	for i := range sampleRows {
		assert.Equal(t, sampleRows[i].Rounded(), rows[i])
	}
}

func TestWriteFile_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "go.csv")
	require.NoError(t, WriteFile(path, sampleRows))
	require.NoError(t, WriteFile(path, sampleRows[:1]))

	rows, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWriteFile_EmptyPath(t *testing.T) {
	assert.Error(t, WriteFile("", sampleRows))
}

func TestRead(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		rows    int
		wantErr error
	}{
		{
			name:  "unquoted with spaces in header",
			input: "key, sys, desc, runs, minimum, maximum, mean, median\nk,go,d,1,1.00,1.00,1.00,1.00\n",
			rows:  1,
		},
		{
			name:  "trailing newline",
			input: `"key","sys","desc","runs","minimum","maximum","mean","median"` + "\n" + `"k","go","d","1","1","1","1","1"` + "\n",
			rows:  1,
		},
		{
			name:    "empty file",
			input:   "",
			wantErr: ErrBadHeader,
		},
		{
			name:    "wrong header",
			input:   "name,sys,desc,runs,minimum,maximum,mean,median\n",
			wantErr: ErrBadHeader,
		},
		{
			name:    "short header",
			input:   "key,sys\n",
			wantErr: ErrBadHeader,
		},
		{
			name:    "short row",
			input:   "key,sys,desc,runs,minimum,maximum,mean,median\nk,go,d\n",
			wantErr: ErrMalformedRow,
		},
		{
			name:    "non-numeric value",
			input:   "key,sys,desc,runs,minimum,maximum,mean,median\nk,go,d,1,x,1,1,1\n",
			wantErr: ErrMalformedRow,
		},
		{
			name:    "broken quoting",
			input:   "key,sys,desc,runs,minimum,maximum,mean,median\n\"k,go,d,1,1,1,1,1\n",
			wantErr: ErrMalformedRow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Read(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, rows, tt.rows)
		})
	}
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadRecords(t *testing.T) {
	in := "key,sys,desc,runs,minimum,maximum,mean,median\nk,go,d,3,12.3,13,12.5,12.75\n"

	rows, cells, err := ReadRecords(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, cells, 1)

	assert.Equal(t, 12.3, rows[0].Minimum)
	assert.Equal(t, []string{"k", "go", "d", "3", "12.3", "13", "12.5", "12.75"}, cells[0])
	assert.Equal(t, "12.30", rows[0].Record()[4], "formatting is a separate step")
}
