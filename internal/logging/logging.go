// Package logging provides the line oriented log sink used by the hooks.
//
// Every line has the form "<function>: <message>\r\n". The function name is
// taken from the FuncField of the apex/log entry.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/pkg/errors"
)

// FuncField is the entry field holding the name of the logging function.
const FuncField = "func"

// Discard drops everything.
var Discard log.Interface = &log.Logger{
	Handler: log.HandlerFunc(func(*log.Entry) error { return nil }),
	Level:   log.FatalLevel,
}

// Sink is a log.Handler writing one line per entry. It may be called from any
// thread.
type Sink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSink returns a Sink writing to w.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// HandleLog implements log.Handler.
func (s *Sink) HandleLog(e *log.Entry) error {
	var b strings.Builder
	if fn, ok := e.Fields[FuncField].(string); ok && fn != "" {
		b.WriteString(fn)
		b.WriteString(": ")
	}
	switch {
	case e.Level >= log.ErrorLevel:
		b.WriteString("ERR: ")
	case e.Level == log.WarnLevel:
		b.WriteString("WARN: ")
	}
	b.WriteString(e.Message)

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		if name != FuncField {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(" ")
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(toString(e.Fields[name]))
	}
	b.WriteString("\r\n")

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, b.String())
	return err
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	case uintptr:
		return fmt.Sprintf("%#x", t)
	default:
		return fmt.Sprint(t)
	}
}

// New builds a logger writing lines to w.
func New(w io.Writer, debug, quiet bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	} else if quiet {
		level = log.ErrorLevel
	}
	return &log.Logger{Handler: NewSink(w), Level: level}
}

// Create truncates or creates the log file at path.
func Create(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open log %s", path)
	}
	return f, nil
}

// Func returns an entry tagged with the calling function name. A nil logger
// discards.
func Func(l log.Interface, name string) *log.Entry {
	if l == nil {
		l = Discard
	}
	return l.WithField(FuncField, name)
}
