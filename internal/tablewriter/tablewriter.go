// Package tablewriter renders run summaries as ASCII tables. Cells may
// contain ANSI color codes and wide runes; column widths are computed from
// display width, not byte length.
package tablewriter

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// displayWidth returns the terminal display width of a string, ignoring
// ANSI escape sequences.
func displayWidth(s string) int {
	return runewidth.StringWidth(ansiRegex.ReplaceAllString(s, ""))
}

// Writer accumulates rows and renders them as an ASCII table.
type Writer struct {
	out     io.Writer
	headers []string
	rows    [][]string
	widths  []int
}

// NewWriter creates a table writer that renders to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: w}
}

// SetHeader sets the table's header row and fixes its column count.
func (t *Writer) SetHeader(headers []string) {
	t.headers = headers
	t.updateWidths(headers)
}

// Append adds one row. Rows longer than the header are truncated; shorter
// rows render with empty trailing cells.
func (t *Writer) Append(row []string) {
	t.rows = append(t.rows, row)
	t.updateWidths(row)
}

func (t *Writer) updateWidths(row []string) {
	limit := len(row)
	if len(t.headers) > 0 && limit > len(t.headers) {
		limit = len(t.headers)
	}
	for i := 0; i < limit; i++ {
		if i >= len(t.widths) {
			t.widths = append(t.widths, 0)
		}
		if width := displayWidth(row[i]); width > t.widths[i] {
			t.widths[i] = width
		}
	}
}

// Render writes the table. A writer with no headers and no rows renders
// nothing.
func (t *Writer) Render() {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return
	}
	t.printBorder()
	if len(t.headers) > 0 {
		t.printRow(t.headers)
		t.printBorder()
	}
	for _, row := range t.rows {
		t.printRow(row)
	}
	t.printBorder()
}

func (t *Writer) printBorder() {
	fmt.Fprint(t.out, "+")
	for _, width := range t.widths {
		fmt.Fprint(t.out, strings.Repeat("-", width+2), "+")
	}
	fmt.Fprintln(t.out)
}

func (t *Writer) printRow(row []string) {
	fmt.Fprint(t.out, "|")
	for i, width := range t.widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		padding := width - displayWidth(cell)
		if padding < 0 {
			padding = 0
		}
		fmt.Fprintf(t.out, " %s%s |", cell, strings.Repeat(" ", padding))
	}
	fmt.Fprintln(t.out)
}
