package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/maxvaer/cmsid/internal/scanner"
)

// ANSI color codes.
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorDim    = "\033[2m"
)

// TextWriter writes one line per target. Colors are only used when writing
// to a terminal.
type TextWriter struct {
	w       io.Writer
	closer  io.Closer
	footer  io.Writer
	noColor bool
	quiet   bool
}

// NewTextWriter creates a text output writer. If outputFile is empty, stdout
// is used. noColor disables ANSI escape codes.
func NewTextWriter(outputFile string, noColor, quiet bool) (*TextWriter, error) {
	w, closer, err := open(outputFile)
	if err != nil {
		return nil, err
	}
	if closer != nil || !term.IsTerminal(int(os.Stdout.Fd())) {
		noColor = true
	}
	return &TextWriter{w: w, closer: closer, footer: os.Stderr, noColor: noColor, quiet: quiet}, nil
}

func (t *TextWriter) WriteHeader() error {
	if t.quiet {
		return nil
	}
	_, err := fmt.Fprintf(t.w, "%sResult          Time  URL%s\n", t.color(colorDim), t.color(colorReset))
	return err
}

func (t *TextWriter) WriteResult(result *scanner.Result) error {
	var label, color, extra string
	switch {
	case result.Identified:
		label, color = result.CMS, colorGreen
		extra = " " + result.MatchedPath
	case result.Accessible && result.Error != "":
		label, color = "interrupted", colorYellow
		extra = " (" + result.Error + ")"
	case result.Accessible:
		label, color = "unidentified", colorYellow
	default:
		label, color = "inaccessible", colorRed
		if result.Error != "" {
			extra = " (" + result.Error + ")"
		}
	}
	if result.Title != "" && result.Accessible {
		extra += fmt.Sprintf(" [%s]", result.Title)
	}

	_, err := fmt.Fprintf(t.w, "%s%-12s%s  %6.2fs  %s%s\n",
		t.color(color), label, t.color(colorReset),
		result.Seconds(),
		result.URL,
		extra,
	)
	return err
}

func (t *TextWriter) WriteFooter(stats Stats) error {
	if t.quiet {
		return nil
	}
	_, err := fmt.Fprintf(t.footer,
		"\nCompleted: %d targets | Identified: %d | Inaccessible: %d | Duration: %s\n",
		stats.Targets,
		stats.Identified,
		stats.Inaccessible,
		stats.Duration.Round(time.Millisecond),
	)
	return err
}

func (t *TextWriter) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

func (t *TextWriter) color(code string) string {
	if t.noColor {
		return ""
	}
	return code
}
