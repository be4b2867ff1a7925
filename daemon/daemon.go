// Package daemon wires the services of the node together and runs them under
// a service manager, with health and metrics endpoints alongside.
package daemon

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy"
	"github.com/bsv-blockchain/legacy-p2p/settings"
	"github.com/bsv-blockchain/legacy-p2p/ulogger"
	"github.com/bsv-blockchain/legacy-p2p/util/servicemanager"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option is a functional option type for configuring the Daemon.
type Option func(*Daemon)

// WithLoggerFactory provides a custom logger factory for the Daemon and its services.
func WithLoggerFactory(factory func(serviceName string) ulogger.Logger) Option {
	return func(d *Daemon) {
		d.loggerFactory = factory
	}
}

func WithContext(ctx context.Context) Option {
	return func(d *Daemon) {
		d.Ctx = ctx
	}
}

type Daemon struct {
	Ctx            context.Context
	ServiceManager *servicemanager.ServiceManager

	doneCh        chan struct{}
	closeDoneOnce sync.Once
	stopCh        chan struct{} // closed once every service has stopped
	closeStopOnce sync.Once

	serverMu      sync.Mutex
	servers       []*http.Server
	healthAddr    string
	loggerFactory func(serviceName string) ulogger.Logger
}

func New(opts ...Option) *Daemon {
	d := &Daemon{
		Ctx:    context.Background(),
		doneCh: make(chan struct{}),
		stopCh: make(chan struct{}),
		loggerFactory: func(serviceName string) ulogger.Logger {
			return ulogger.New(serviceName)
		},
	}

	for _, opt := range opts {
		opt(d)
	}

	d.ServiceManager = servicemanager.NewServiceManager(d.Ctx, d.loggerFactory("ServiceManager"))

	return d
}

// HealthAddr is the address the health endpoint listens on, once started.
func (d *Daemon) HealthAddr() string {
	d.serverMu.Lock()
	defer d.serverMu.Unlock()

	return d.healthAddr
}

// Stop asks the daemon to shut down and waits up to timeout, 10s by default,
// for the services to stop.
func (d *Daemon) Stop(timeout ...time.Duration) error {
	d.closeDoneOnce.Do(func() { close(d.doneCh) })

	shutdownTimeout := 10 * time.Second
	if len(timeout) > 0 {
		shutdownTimeout = timeout[0]
	}

	select {
	case <-d.stopCh:
		return nil
	case <-time.After(shutdownTimeout):
		return errors.NewProcessingError("timeout waiting for services to stop after %v", shutdownTimeout)
	}
}

// Start runs the services until they fail, a signal arrives or Stop is
// called. readyCh, if given, is closed once every service is ready.
func (d *Daemon) Start(logger ulogger.Logger, tSettings *settings.Settings, readyCh ...chan struct{}) {
	defer d.closeStopOnce.Do(func() { close(d.stopCh) })

	sm := d.ServiceManager

	if err := sm.AddService("Legacy", legacy.New(d.loggerFactory("legacy"), tSettings)); err != nil {
		logger.Errorf("error starting services: %v", err)
		sm.ForceShutdown()

		_ = sm.Wait()

		return
	}

	if err := d.startHealthServer(logger, tSettings, sm); err != nil {
		logger.Errorf("error starting health server: %v", err)
	}

	if tSettings.PrometheusListenAddress != "" {
		d.startMetricsServer(logger, tSettings.PrometheusListenAddress)
	}

	if len(readyCh) > 0 && readyCh[0] != nil {
		go func() {
			sm.WaitForServicesToBeReady()

			if len(sm.ServicesNotReady()) == 0 {
				close(readyCh[0])
			}
		}()
	}

	waitErr := make(chan error, 1)

	go func() {
		waitErr <- sm.Wait()
	}()

	select {
	case err := <-waitErr:
		if err != nil {
			logger.Errorf("services failed: %v", err)
		}
	case <-d.doneCh:
		logger.Infof("daemon shutdown requested")

		sm.ForceShutdown()

		if err := <-waitErr; err != nil {
			logger.Errorf("error during service shutdown: %v", err)
		}
	}

	d.shutdownServers(logger)

	logger.Infof("daemon shutdown completed")
}

func (d *Daemon) startHealthServer(logger ulogger.Logger, tSettings *settings.Settings, sm *servicemanager.ServiceManager) error {
	healthFunc := func(liveness bool) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			status, details, _ := sm.HealthHandler(sm.Ctx, liveness)

			w.WriteHeader(status)
			_, _ = w.Write([]byte(details))
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthFunc(false))
	mux.HandleFunc("/health/readiness", healthFunc(false))
	mux.HandleFunc("/health/liveness", healthFunc(true))

	ln, err := net.Listen("tcp", ":"+strconv.Itoa(tSettings.HealthCheckPort))
	if err != nil {
		return errors.NewServiceError("failed to listen on health check port %d", tSettings.HealthCheckPort, err)
	}

	d.serverMu.Lock()
	d.healthAddr = ln.Addr().String()
	d.serverMu.Unlock()

	d.serve(logger, ln, mux)

	logger.Infof("Health check endpoint listening on http://%s/health", ln.Addr())

	return nil
}

func (d *Daemon) startMetricsServer(logger ulogger.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Errorf("failed to listen for prometheus on %s: %v", addr, err)
		return
	}

	d.serve(logger, ln, mux)

	logger.Infof("Prometheus metrics on http://%s/metrics", ln.Addr())
}

func (d *Daemon) serve(logger ulogger.Logger, ln net.Listener, handler http.Handler) {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 20 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	d.serverMu.Lock()
	d.servers = append(d.servers, server)
	d.serverMu.Unlock()

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("http server on %s stopped: %v", ln.Addr(), err)
		}
	}()
}

func (d *Daemon) shutdownServers(logger ulogger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d.serverMu.Lock()
	defer d.serverMu.Unlock()

	for _, server := range d.servers {
		if err := server.Shutdown(ctx); err != nil {
			logger.Warnf("error shutting down http server: %v", err)
		}
	}

	d.servers = nil
}
