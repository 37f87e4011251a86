// Package logging configures the two log streams of the CLI: the main
// logrus standard logger and a separate logger that echoes subprocess output.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/sirupsen/logrus"
)

// TimestampFormat is used by both formatters.
const TimestampFormat = "2006-01-02 15:04:05"

func newRenderer(w io.Writer, color bool) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

// Formatter renders "LEVEL:timestamp[:file:line] message k=v ..." with the
// prefix in blue.
type Formatter struct {
	prefix lipgloss.Style
}

// NewFormatter returns a Formatter for output written to w.
func NewFormatter(w io.Writer, color bool) *Formatter {
	return &Formatter{prefix: newRenderer(w, color).NewStyle().Foreground(lipgloss.Color("4"))}
}

// Format implements logrus.Formatter.
func (f *Formatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	prefix := fmt.Sprintf("%7s:%s", strings.ToUpper(e.Level.String()), e.Time.Format(TimestampFormat))
	if e.HasCaller() {
		prefix += fmt.Sprintf(":%s:%d", filepath.Base(e.Caller.File), e.Caller.Line)
	}
	b.WriteString(f.prefix.Render(prefix))
	b.WriteByte(' ')
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// SubprocessFormatter renders "timestamp line" with the timestamp in magenta.
type SubprocessFormatter struct {
	stamp lipgloss.Style
}

// NewSubprocessFormatter returns a SubprocessFormatter for output written to w.
func NewSubprocessFormatter(w io.Writer, color bool) *SubprocessFormatter {
	return &SubprocessFormatter{stamp: newRenderer(w, color).NewStyle().Foreground(lipgloss.Color("5"))}
}

// Format implements logrus.Formatter.
func (f *SubprocessFormatter) Format(e *logrus.Entry) ([]byte, error) {
	return []byte(f.stamp.Render(e.Time.Format(TimestampFormat)) + " " + e.Message + "\n"), nil
}

// Setup parses level and installs the blue-prefixed formatter on the
// standard logger.
func Setup(w io.Writer, level string, color bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetOutput(w)
	logrus.SetLevel(lvl)
	logrus.SetFormatter(NewFormatter(w, color))
	return nil
}

// NewSubprocessLogger returns the logger that echoes child process output.
// Lines are logged at debug level, so they show only when the main level is
// debug or lower.
func NewSubprocessLogger(w io.Writer, level logrus.Level, color bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(NewSubprocessFormatter(w, color))
	return l
}
