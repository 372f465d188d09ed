// Package console prints operator-facing progress and error lines.
package console

import (
	"io"
	"log"
)

// Logger writes "[LOG]" lines to one writer and "[ERROR]" lines to another.
type Logger struct {
	info *log.Logger
	errs *log.Logger
}

// New returns a Logger. flags are the standard log flags; pass 0 for bare lines.
func New(out, errOut io.Writer, flags int) *Logger {
	return &Logger{
		info: log.New(out, "[LOG] ", flags),
		errs: log.New(errOut, "[ERROR] ", flags),
	}
}

func (l *Logger) Log(msg string)   { l.info.Println(msg) }
func (l *Logger) Error(msg string) { l.errs.Println(msg) }
