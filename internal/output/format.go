// Package output renders command results and errors as text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format represents the output format.
type Format string

// Output format constants.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// ParseFormat parses a format string. Unknown values mean auto.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON
	case FormatText:
		return FormatText
	case FormatAuto:
		return FormatAuto
	default:
		return FormatAuto
	}
}

// DetectFormat resolves auto to text on a terminal and JSON otherwise.
func DetectFormat(w io.Writer, explicit Format) Format {
	if explicit != FormatAuto && explicit != "" {
		return explicit
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // G115: Fd() fits in int
		return FormatText
	}
	return FormatJSON
}

// Formatter writes results in one format.
type Formatter struct {
	format Format
	out    io.Writer
	errOut io.Writer
}

// NewFormatter creates a formatter. errOut receives notices and warnings.
func NewFormatter(format Format, out, errOut io.Writer) *Formatter {
	return &Formatter{format: format, out: out, errOut: errOut}
}

// Format returns the current output format.
func (f *Formatter) Format() Format {
	return f.format
}

// IsJSON returns true if the formatter outputs JSON.
func (f *Formatter) IsJSON() bool {
	return f.format == FormatJSON
}

// Writer returns the result writer.
func (f *Formatter) Writer() io.Writer {
	return f.out
}

// JSON writes v as indented JSON.
func (f *Formatter) JSON(v any) error {
	encoder := json.NewEncoder(f.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Result writes v as JSON, or text as-is in text mode.
func (f *Formatter) Result(v any, text string) error {
	if f.IsJSON() {
		return f.JSON(v)
	}
	_, err := io.WriteString(f.out, text)
	return err
}

// Println writes a line of text output.
func (f *Formatter) Println(args ...any) {
	_, _ = fmt.Fprintln(f.out, args...)
}

// Printf writes formatted text output.
func (f *Formatter) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(f.out, format, args...)
}

// Success reports a completed action. In JSON mode it is a status object.
func (f *Formatter) Success(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if f.IsJSON() {
		return f.JSON(map[string]string{"status": "success", "message": msg})
	}
	_, err := fmt.Fprintln(f.out, msg)
	return err
}

// Warn writes a warning to the error stream so JSON results stay parseable.
func (f *Formatter) Warn(format string, args ...any) {
	_, _ = fmt.Fprintf(f.errOut, "Warning: "+format+"\n", args...)
}

// Notice writes an informational line to the error stream.
func (f *Formatter) Notice(format string, args ...any) {
	_, _ = fmt.Fprintf(f.errOut, format+"\n", args...)
}
