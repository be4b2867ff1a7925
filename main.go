package main

import (
	"github.com/bsv-blockchain/legacy-p2p/daemon"
	"github.com/bsv-blockchain/legacy-p2p/settings"
	"github.com/bsv-blockchain/legacy-p2p/ulogger"
	"github.com/ordishs/gocore"
)

// Name used by build script for the binaries. (Please keep on single line)
const progname = "legacy-p2p"

// Version & commit strings injected at build with -ldflags -X...
var version string
var commit string

func main() {
	gocore.SetInfo(progname, version, commit)

	tSettings := settings.NewSettings()

	loggerOptions := []ulogger.Option{
		ulogger.WithLoggerType(tSettings.LoggerType),
		ulogger.WithLevel(tSettings.LogLevel),
		ulogger.WithPretty(tSettings.PrettyLogs),
	}

	logger := ulogger.New(progname, loggerOptions...)

	stats := gocore.Config().Stats()
	logger.Infof("STATS\n%s\nVERSION\n-------\n%s (%s)\n\n", stats, version, commit)

	daemon.New(daemon.WithLoggerFactory(func(serviceName string) ulogger.Logger {
		return logger.New(serviceName)
	})).Start(logger, tSettings)
}
