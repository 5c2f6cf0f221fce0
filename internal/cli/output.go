package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	headerColor  = color.New(color.FgWhite, color.Bold)
)

// printer writes colored status lines to a command's output.
type printer struct {
	w io.Writer
}

func (p printer) ok(format string, a ...any) {
	successColor.Fprint(p.w, "[OK] ")
	fmt.Fprintf(p.w, format+"\n", a...)
}

func (p printer) fail(format string, a ...any) {
	errorColor.Fprint(p.w, "[FAIL] ")
	fmt.Fprintf(p.w, format+"\n", a...)
}

func (p printer) warn(format string, a ...any) {
	warnColor.Fprint(p.w, "[WARN] ")
	fmt.Fprintf(p.w, format+"\n", a...)
}

func (p printer) fixed(format string, a ...any) {
	successColor.Fprint(p.w, "[FIXED] ")
	fmt.Fprintf(p.w, format+"\n", a...)
}

func (p printer) info(format string, a ...any) {
	infoColor.Fprintf(p.w, format+"\n", a...)
}

// table renders rows with left-aligned, padded columns.
func (p printer) table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, h := range headers {
		headerColor.Fprintf(p.w, "%-*s  ", widths[i], h)
	}
	fmt.Fprintln(p.w)
	for i := range headers {
		fmt.Fprint(p.w, strings.Repeat("-", widths[i])+"  ")
	}
	fmt.Fprintln(p.w)
	for _, row := range rows {
		for i, cell := range row {
			fmt.Fprintf(p.w, "%-*s  ", widths[i], cell)
		}
		fmt.Fprintln(p.w)
	}
}
