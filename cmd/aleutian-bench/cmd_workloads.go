// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io"

	"github.com/AleutianAI/AleutianBench/services/workloads"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func listWorkloads(cmd *cobra.Command, args []string) error {
	return printWorkloads(cmd.OutOrStdout(), workloads.Default())
}

func printWorkloads(w io.Writer, reg *workloads.Registry) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "DESCRIPTION", "MODE", "SIZED")

	for _, id := range reg.List() {
		wl, ok := reg.Get(id)
		if !ok {
			continue
		}
		sized := "yes"
		if wl.OmitSize {
			sized = "no"
		}
		t.Row(wl.ID, wl.Name, wl.Description, wl.Spec(0, 0, 0).Mode().String(), sized)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
