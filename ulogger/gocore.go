package ulogger

import (
	"github.com/ordishs/gocore"
)

// GoCoreLogger logs through gocore, which also exposes the level on its
// runtime control socket. The level cannot be changed afterwards.
type GoCoreLogger struct {
	*gocore.Logger
	service string
	level   string
}

func NewGoCoreLogger(service string, options ...Option) *GoCoreLogger {
	if service == "" {
		service = "p2p"
	}

	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	return &GoCoreLogger{
		Logger:  gocore.Log(service, gocore.NewLogLevelFromString(opts.logLevel)),
		service: service,
		level:   opts.logLevel,
	}
}

func (g *GoCoreLogger) New(service string, options ...Option) Logger {
	inherited := []Option{WithLevel(g.level)}

	return NewGoCoreLogger(service, append(inherited, options...)...)
}

func (g *GoCoreLogger) Duplicate(options ...Option) Logger {
	if len(options) == 0 {
		return &GoCoreLogger{Logger: g.Logger, service: g.service, level: g.level}
	}

	return g.New(g.service, options...)
}

func (g *GoCoreLogger) SetLogLevel(_ string) {}
