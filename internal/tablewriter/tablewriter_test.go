package tablewriter

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Render()
	require.Empty(t, buf.String())
}

func TestHeadersOnly(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.SetHeader([]string{"Node", "Status", "Duration"})
	w.Render()

	expected := `+------+--------+----------+
| Node | Status | Duration |
+------+--------+----------+
+------+--------+----------+
`
	require.Equal(t, expected, buf.String())
}

func TestHeadersAndRows(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.SetHeader([]string{"Node", "Status", "Duration"})
	w.Append([]string{"investigate", "success", "1.2s"})
	w.Append([]string{"fix", "failure", "800ms"})
	w.Render()

	expected := `+-------------+---------+----------+
| Node        | Status  | Duration |
+-------------+---------+----------+
| investigate | success | 1.2s     |
| fix         | failure | 800ms    |
+-------------+---------+----------+
`
	require.Equal(t, expected, buf.String())
}

func TestRowsWithoutHeaders(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Append([]string{"verify", "escalated"})
	w.Render()

	expected := `+--------+-----------+
| verify | escalated |
+--------+-----------+
`
	require.Equal(t, expected, buf.String())
}

func TestVaryingColumnCounts(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.SetHeader([]string{"Node", "Status", "Duration", "Error"})
	w.Append([]string{"a", "success"})
	w.Append([]string{"b", "failure", "2s", "timeout", "extra-ignored"})
	w.Render()

	expected := `+------+---------+----------+---------+
| Node | Status  | Duration | Error   |
+------+---------+----------+---------+
| a    | success |          |         |
| b    | failure | 2s       | timeout |
+------+---------+----------+---------+
`
	require.Equal(t, expected, buf.String())
}

func TestANSIColorsDoNotBreakAlignment(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.SetHeader([]string{"Node", "Status"})
	w.Append([]string{"build", "\033[32msuccess\033[0m"})
	w.Append([]string{"verify", "\033[31mescalated\033[0m"})
	w.Render()

	output := buf.String()
	require.Contains(t, output, "\033[32m")
	require.Contains(t, output, "\033[31m")

	stripped := regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`).ReplaceAllString(output, "")
	lines := strings.Split(strings.TrimSpace(stripped), "\n")
	require.Len(t, lines, 6)
	for _, line := range lines {
		require.Len(t, line, len(lines[0]))
	}
}

func TestWideRunesAlign(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.SetHeader([]string{"Node", "Note"})
	w.Append([]string{"draft", "日本語"})
	w.Append([]string{"review", "ok"})
	w.Render()

	// The wide-rune cell occupies six display columns
	require.Contains(t, buf.String(), "| 日本語 |")
	require.Contains(t, buf.String(), "| ok     |")
}
