package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"rgehrsitz/rexscan/pkg/runtime"
)

var (
	headerColor = color.New(color.FgHiMagenta, color.Bold)
	dimColor    = color.New(color.Faint)
	highColor   = color.New(color.FgRed, color.Bold)
	mediumColor = color.New(color.FgYellow)
	lowColor    = color.New(color.FgCyan)
	okColor     = color.New(color.FgGreen)
)

func scoreColor(score int) *color.Color {
	switch {
	case score >= 3:
		return highColor
	case score == 2:
		return mediumColor
	}
	return lowColor
}

// WriteText renders a scan result for a terminal. Colors follow
// color.NoColor.
func WriteText(w io.Writer, res *runtime.ScanResult) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", headerColor.Sprintf("%s RISK REPORT", res.Category))
	fmt.Fprintf(&b, "%s\n", dimColor.Sprintf("run %s  records %d  rules %d  min_score %d",
		res.RunID, res.Records, res.Rules, res.MinScore))

	if len(res.Report) == 0 {
		fmt.Fprintf(&b, "%s\n", okColor.Sprint("No resources at risk"))
		_, err := io.WriteString(w, b.String())
		return err
	}

	for _, p := range res.Report {
		c := scoreColor(p.Score)
		name := naturalKey(p)
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(&b, "%s  %-6d %s  %s\n",
			c.Sprintf("[%d/%d]", p.Score, p.Weighted),
			p.RowID,
			name,
			strings.Join(p.Violations, ", "))
	}
	fmt.Fprintf(&b, "%s\n", dimColor.Sprintf("%d resource(s) at risk", len(res.Report)))

	_, err := io.WriteString(w, b.String())
	return err
}
