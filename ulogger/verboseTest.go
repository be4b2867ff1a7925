package ulogger

import (
	"sync"
	"testing"
)

// VerboseTestLogger sends everything to t.Logf, so it only shows with -v or
// when the test fails.
type VerboseTestLogger struct {
	t       *testing.T
	service string
	mu      *sync.Mutex
}

func NewVerboseTestLogger(t *testing.T) *VerboseTestLogger {
	return &VerboseTestLogger{t: t, mu: &sync.Mutex{}}
}

func (l *VerboseTestLogger) LogLevel() int            { return 0 }
func (l *VerboseTestLogger) SetLogLevel(level string) {}

func (l *VerboseTestLogger) New(service string, _ ...Option) Logger {
	return &VerboseTestLogger{t: l.t, service: service, mu: l.mu}
}

func (l *VerboseTestLogger) Duplicate(_ ...Option) Logger {
	return l
}

func (l *VerboseTestLogger) logf(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.service != "" {
		format = l.service + " | " + format
	}

	l.t.Logf("["+level+"] "+format, args...)
}

func (l *VerboseTestLogger) Debugf(format string, args ...interface{}) { l.logf("DEBUG", format, args...) }
func (l *VerboseTestLogger) Infof(format string, args ...interface{})  { l.logf("INFO", format, args...) }
func (l *VerboseTestLogger) Warnf(format string, args ...interface{})  { l.logf("WARN", format, args...) }
func (l *VerboseTestLogger) Errorf(format string, args ...interface{}) { l.logf("ERROR", format, args...) }

func (l *VerboseTestLogger) Fatalf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.t.Fatalf("[FATAL] "+format, args...)
}
