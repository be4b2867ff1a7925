// Package ulogger is the logging interface shared by every package, with a
// zerolog implementation by default and gocore as an alternative.
package ulogger

// ANSI colours for the pretty console output.
const (
	colorRed = iota + 31
	colorGreen
	colorYellow
	colorBlue
	colorWhite = 37

	colorBold = 1
)

type Logger interface {
	LogLevel() int
	SetLogLevel(level string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	// New returns a logger for another service that keeps this logger's
	// output and level unless options say otherwise.
	New(service string, options ...Option) Logger
	Duplicate(options ...Option) Logger
}

// New returns a logger of the type chosen with WithLoggerType.
func New(service string, options ...Option) Logger {
	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	if opts.loggerType == "gocore" {
		return NewGoCoreLogger(service, options...)
	}

	return NewZeroLogger(service, options...)
}
