// Package debug implements the kernel's Debug capability: the
// log/info/warn/error/panic facility every other subsystem reaches
// for instead of touching a UART directly. The concrete byte sink
// (UART, serial console) is an external collaborator; this package
// only owns formatting and level routing.
package debug

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Sink is the byte-stream the formatted log lines are written to.
// Concrete drivers (e.g. a UART) implement io.Writer; tests use an
// in-memory buffer.
type Sink = io.Writer

// Debug is the kernel-wide logging facility. The zero value has no
// logger and is not usable; build one with New.
type Debug struct {
	log *logrus.Logger
}

// New attaches sink as the Debug facility's output. A nil sink keeps
// logrus's default (os.Stderr).
func New(sink Sink) *Debug {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		FullTimestamp:    false,
	})
	if sink != nil {
		l.SetOutput(sink)
	}
	return &Debug{log: l}
}

// Log writes msg at info level, with no extra prefix; it is the entry
// point for high-volume trace output.
func (d *Debug) Log(msg string) {
	d.log.Info(msg)
}

// Info logs at info level.
func (d *Debug) Info(msg string) {
	d.log.Info(msg)
}

// Warn logs at warning level. Used for recoverable conditions:
// double-install, unresolved soft symbols.
func (d *Debug) Warn(msg string) {
	d.log.Warn(msg)
}

// Error logs at error level. Used for recoverable-but-surfaced
// failures (file-not-found, bad ELF, decode failure).
func (d *Debug) Error(msg string) {
	d.log.Error(msg)
}

// Fields logs a structured record — used for exception register
// dumps, where each register is its own field rather than a
// formatted string.
func (d *Debug) Fields(level logrus.Level, fields logrus.Fields, msg string) {
	d.log.WithFields(fields).Log(level, msg)
}

// Panic logs at error level and then panics, matching the fatal
// propagation policy for OOM, CPU exceptions 0-18, and corrupt IDT:
// these have no recoverable return path.
func (d *Debug) Panic(msg string) {
	d.log.Error(msg)
	panic(msg)
}

// Logger exposes the underlying logrus.Logger for collaborators that
// need to pass one through (e.g. internal/binutils/relocate.SharedObject's
// unresolved-symbol warnings).
func (d *Debug) Logger() *logrus.Logger {
	return d.log
}

// Output is the generic leveled sink used by the `debug` console
// command: levels 0-5 map onto logrus's Panic..Debug ordering and
// any other level is dropped, the same clamp the original's
// Debug::output performs.
func (d *Debug) Output(level int, msg string) {
	if level < 0 || level > 5 {
		return
	}
	d.log.Log(logrus.Level(level), msg)
}
