package logsvc

import (
	"io"
	"log"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

// StdLogger writes to a standard logger only. Debug entries are dropped unless verbose.
type StdLogger struct {
	std     *log.Logger
	verbose bool
}

var _ core.Logger = (*StdLogger)(nil)

func NewStdLogger(std *log.Logger, verbose bool) *StdLogger {
	return &StdLogger{std: std, verbose: verbose}
}

// NewDiscardLogger returns a logger that writes nowhere.
func NewDiscardLogger() *StdLogger {
	return NewStdLogger(log.New(io.Discard, "", 0), false)
}

func (l StdLogger) Debug(msg string, args ...interface{}) {
	if l.verbose {
		printArgs(l.std, "DEBUG", msg, args)
	}
}

func (l StdLogger) Info(msg string, args ...interface{}) {
	printArgs(l.std, "INFO", msg, args)
}

func (l StdLogger) Warn(msg string, args ...interface{}) {
	printArgs(l.std, "WARN", msg, args)
}

func (l StdLogger) Error(msg string, args ...interface{}) {
	printArgs(l.std, "ERROR", msg, args)
}

func (l StdLogger) Fatal(msg string, args ...interface{}) {
	printArgs(l.std, "FATAL", msg, args)
	l.std.Fatal(msg)
}

func printArgs(std *log.Logger, level, msg string, args []interface{}) {
	std.Printf("%s: %s", level, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			std.Printf("  user: %s (%s)", a.Username, a.ID)
		default:
			std.Printf("  %+v", a)
		}
	}
}
