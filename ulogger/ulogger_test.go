package ulogger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bsv-blockchain/legacy-p2p/ulogger"
	"github.com/ordishs/gocore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var out []map[string]interface{}

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		m := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}

	return out
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected int
		lines    int
	}{
		{"DEBUG", int(gocore.DEBUG), 4},
		{"INFO", int(gocore.INFO), 3},
		{"WARN", int(gocore.WARN), 2},
		{"ERROR", int(gocore.ERROR), 1},
		{"bogus", int(gocore.INFO), 3},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer

			logger := ulogger.New("test", ulogger.WithWriter(&buf), ulogger.WithLevel(tt.level), ulogger.WithPretty(false))
			assert.Equal(t, tt.expected, logger.LogLevel())

			logger.Debugf("debug %d", 1)
			logger.Infof("info %d", 2)
			logger.Warnf("warn %d", 3)
			logger.Errorf("error %d", 4)

			assert.Len(t, jsonLines(t, &buf), tt.lines)
		})
	}
}

func TestJSONLogging(t *testing.T) {
	var buf bytes.Buffer

	logger := ulogger.New("peer", ulogger.WithWriter(&buf), ulogger.WithPretty(false))
	logger.Infof("connected to %s", "1.2.3.4:8333")

	lines := jsonLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "peer", lines[0]["service"])
	assert.Equal(t, "connected to 1.2.3.4:8333", lines[0]["message"])
	assert.Contains(t, lines[0], "caller")
}

func TestNewInheritsWriterAndLevel(t *testing.T) {
	var buf bytes.Buffer

	parent := ulogger.New("manager", ulogger.WithWriter(&buf), ulogger.WithLevel("WARN"), ulogger.WithPretty(false))
	child := parent.New("peer")

	child.Infof("dropped")
	child.Warnf("kept")

	lines := jsonLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "peer", lines[0]["service"])
	assert.Equal(t, "kept", lines[0]["message"])

	dup := parent.Duplicate(ulogger.WithLevel("DEBUG"))
	assert.Equal(t, int(gocore.DEBUG), dup.LogLevel())
	assert.Equal(t, int(gocore.WARN), parent.LogLevel())
}

func TestPrettyLogging(t *testing.T) {
	var buf bytes.Buffer

	logger := ulogger.New("wire", ulogger.WithWriter(&buf))
	logger.Warnf("checksum mismatch")

	out := buf.String()
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "| wire  | checksum mismatch")
}

func TestTestLoggers(t *testing.T) {
	var l ulogger.Logger = ulogger.TestLogger{}
	l.Infof("nothing")
	assert.Equal(t, l, l.New("x"))

	v := ulogger.NewVerboseTestLogger(t)
	v.Infof("visible with -v %d", 1)
	assert.Equal(t, ulogger.Logger(v), v.Duplicate())
}

func TestGoCoreLogger(t *testing.T) {
	logger := ulogger.New("gocore-test", ulogger.WithLoggerType("gocore"), ulogger.WithLevel("WARN"))

	g, ok := logger.(*ulogger.GoCoreLogger)
	require.True(t, ok)

	_, ok = g.New("child").(*ulogger.GoCoreLogger)
	assert.True(t, ok)

	_, ok = g.Duplicate().(*ulogger.GoCoreLogger)
	assert.True(t, ok)
}
