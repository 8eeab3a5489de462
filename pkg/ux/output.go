// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux styles terminal output for aleutian-bench.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Aleutian palette, deep ocean teals.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Header:  lipgloss.NewStyle().Bold(true).Foreground(ColorTealPrimary),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
}

// Icon is a status marker printed before a message.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
)

// ColorMode controls when output is styled.
type ColorMode string

const (
	// ColorAuto styles output only when it goes to a terminal and NO_COLOR
	// is unset.
	ColorAuto ColorMode = "auto"

	// ColorAlways styles output unconditionally.
	ColorAlways ColorMode = "always"

	// ColorNever writes plain text.
	ColorNever ColorMode = "never"
)

// ParseColorMode converts a flag value to a ColorMode.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(s)); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	case "":
		return ColorAuto, nil
	default:
		return ColorAuto, fmt.Errorf("unknown color mode %q (want auto, always or never)", s)
	}
}

// IsTerminal reports whether fd refers to a terminal, including Cygwin
// and MSYS pseudo terminals.
func IsTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Printer writes status lines and decides whether to style them.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter creates a Printer for w. In ColorAuto mode w is styled only
// if it is an *os.File attached to a terminal.
func NewPrinter(w io.Writer, mode ColorMode) *Printer {
	return &Printer{w: w, color: useColor(w, mode)}
}

func useColor(w io.Writer, mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	return ok && IsTerminal(f.Fd())
}

// Color reports whether the printer styles its output.
func (p *Printer) Color() bool { return p.color }

// Writer returns the destination writer.
func (p *Printer) Writer() io.Writer { return p.w }

// HeaderStyle returns a cell styler for table headers, or nil when the
// printer writes plain text.
func (p *Printer) HeaderStyle() func(string) string {
	if !p.color {
		return nil
	}
	return func(s string) string { return Styles.Header.Render(s) }
}

// Title prints a styled title line.
func (p *Printer) Title(text string) {
	fmt.Fprintln(p.w, p.render(Styles.Title, text))
}

// Success prints a message with a check mark.
func (p *Printer) Success(format string, args ...any) {
	p.status(IconSuccess, Styles.Success, format, args...)
}

// Warning prints a message with a warning sign.
func (p *Printer) Warning(format string, args ...any) {
	p.status(IconWarning, Styles.Warning, format, args...)
}

// Error prints a message with a cross.
func (p *Printer) Error(format string, args ...any) {
	p.status(IconError, Styles.Error, format, args...)
}

// Muted prints secondary text.
func (p *Printer) Muted(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(Styles.Muted, fmt.Sprintf(format, args...)))
}

func (p *Printer) status(icon Icon, style lipgloss.Style, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(p.w, "%s %s\n", p.render(style, string(icon)), p.render(style, msg))
}

func (p *Printer) render(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}
