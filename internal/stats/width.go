package stats

import (
	"io"
	"os"

	"golang.org/x/term"
)

const (
	labelWidth          = 9
	minSparkWidth       = 10
	terminalWidthBackup = 80
)

// TerminalWidth returns the column count of w when it is a terminal, or a
// fixed fallback otherwise.
func TerminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return terminalWidthBackup
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// SparkWidthFor computes the sparkline width that fits next to a row label
// within totalWidth. Series shorter than the room available keep their length.
func SparkWidthFor(totalWidth, samples int) int {
	if totalWidth <= 0 {
		totalWidth = terminalWidthBackup
	}
	width := max(totalWidth-labelWidth, minSparkWidth)
	if samples > 0 && samples < width {
		return samples
	}
	return width
}
