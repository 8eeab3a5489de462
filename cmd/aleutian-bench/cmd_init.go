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
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/AleutianAI/AleutianBench/cmd/aleutian-bench/config"
	"github.com/AleutianAI/AleutianBench/pkg/ux"
	"github.com/spf13/cobra"
)

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := config.DefaultPath
	if len(args) > 0 {
		path = args[0]
	}
	return writeDefaultConfig(path, initForce, ux.NewPrinter(cmd.OutOrStdout(), colorMode))
}

func writeDefaultConfig(path string, force bool, out *ux.Printer) error {
	if force {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	if err := config.CreateDefault(path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		return err
	}
	out.Success("Wrote default configuration to %s", path)
	return nil
}
