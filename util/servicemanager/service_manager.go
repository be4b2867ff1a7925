// Package servicemanager runs the long-lived services of the node with ordered
// startup, reverse-order shutdown and signal handling.
package servicemanager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/ulogger"
	"golang.org/x/sync/errgroup"
)

// Service is anything the manager can run.
type Service interface {
	Init(ctx context.Context) error
	// Start blocks until ctx is done or the service fails. It closes readyCh
	// once it is accepting work.
	Start(ctx context.Context, readyCh chan<- struct{}) error
	Stop(ctx context.Context) error
	Health(ctx context.Context, checkLiveness bool) (int, string, error)
}

type serviceWrapper struct {
	name     string
	instance Service
	readyCh  chan struct{}
}

var (
	mu        sync.RWMutex
	listeners []string
)

const (
	startTimeout = 5 * time.Second
	stopTimeout  = 5 * time.Second
)

type ServiceManager struct {
	services   []serviceWrapper
	servicesMu sync.Mutex
	logger     ulogger.Logger
	Ctx        context.Context
	cancelFunc context.CancelFunc
	g          *errgroup.Group
}

// NewServiceManager creates a manager whose context is cancelled on SIGINT or
// SIGTERM, or when any service returns an error.
func NewServiceManager(ctx context.Context, logger ulogger.Logger) *ServiceManager {
	ctx, cancelFunc := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)

	sm := &ServiceManager{
		logger:     logger,
		Ctx:        ctx,
		cancelFunc: cancelFunc,
		g:          g,
	}

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigs)

		select {
		case <-sigs:
			sm.logger.Infof("🟠 Received shutdown signal. Stopping services...")
			sm.cancelFunc()
		case <-ctx.Done():
		}
	}()

	return sm
}

// AddListenerInfo records a listening address for the /services endpoint.
func AddListenerInfo(name string) {
	mu.Lock()
	defer mu.Unlock()

	listeners = append(listeners, name)
}

// GetListenerInfos returns a sorted copy of all registered listeners.
func GetListenerInfos() []string {
	mu.RLock()
	defer mu.RUnlock()

	sorted := make([]string, len(listeners))
	copy(sorted, listeners)
	sort.Strings(sorted)

	return sorted
}

// AddService initialises service and starts it in the background once the
// previously added service has signalled it is ready.
func (sm *ServiceManager) AddService(name string, service Service) error {
	sw := serviceWrapper{
		name:     name,
		instance: service,
		readyCh:  make(chan struct{}),
	}

	sm.servicesMu.Lock()

	var previous *serviceWrapper
	if n := len(sm.services); n > 0 {
		prev := sm.services[n-1]
		previous = &prev
	}

	sm.services = append(sm.services, sw)
	sm.servicesMu.Unlock()

	sm.logger.Infof("⚪️ Initializing service %s...", name)

	if err := service.Init(sm.Ctx); err != nil {
		return err
	}

	sm.g.Go(func() error {
		if previous != nil {
			if err := sm.waitForService(*previous); err != nil {
				return errors.NewServiceError("%s not started", name, err)
			}
		}

		sm.logger.Infof("🟢 Starting service %s...", name)

		if err := service.Start(sm.Ctx, sw.readyCh); err != nil {
			sm.logger.Errorf("Error from service start %s: %v", name, err)
			return err
		}

		return nil
	})

	return nil
}

func (sm *ServiceManager) waitForService(sw serviceWrapper) error {
	timer := time.NewTimer(startTimeout)
	defer timer.Stop()

	select {
	case <-sw.readyCh:
		return nil
	case <-sm.Ctx.Done():
		return sm.Ctx.Err()
	case <-timer.C:
		return errors.NewServiceError("timed out waiting for %s to become ready", sw.name)
	}
}

// WaitForServicesToBeReady blocks until every service has signalled readiness
// or the manager is shutting down.
func (sm *ServiceManager) WaitForServicesToBeReady() {
	for _, sw := range sm.snapshot() {
		select {
		case <-sw.readyCh:
			sm.logger.Infof("🟢 Service %s is ready", sw.name)
		case <-sm.Ctx.Done():
			return
		}
	}
}

// ServicesNotReady returns the names of services that have not signalled readiness.
func (sm *ServiceManager) ServicesNotReady() []string {
	var notReady []string

	for _, sw := range sm.snapshot() {
		select {
		case <-sw.readyCh:
		default:
			notReady = append(notReady, sw.name)
		}
	}

	return notReady
}

func (sm *ServiceManager) snapshot() []serviceWrapper {
	sm.servicesMu.Lock()
	defer sm.servicesMu.Unlock()

	return append([]serviceWrapper(nil), sm.services...)
}

// ForceShutdown cancels the manager context.
func (sm *ServiceManager) ForceShutdown() {
	sm.cancelFunc()
}

// Wait blocks until all services have returned, then stops them in reverse
// order. A plain shutdown is not reported as an error.
func (sm *ServiceManager) Wait() error {
	err := sm.g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		sm.logger.Errorf("Received error: %v", err)
	}

	services := sm.snapshot()

	for i := len(services) - 1; i >= 0; i-- {
		service := services[i]

		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)

		sm.logger.Infof("🟠 Stopping service %s...", service.name)

		if stopErr := service.instance.Stop(stopCtx); stopErr != nil {
			sm.logger.Warnf("[%s] Failed to stop service: %v", service.name, stopErr)
		} else {
			sm.logger.Infof("[%s] Service stopped gracefully", service.name)
		}

		stopCancel()
	}

	sm.logger.Infof("🛑 All services stopped.")

	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// HealthHandler aggregates the health of every service. It reports 503 if any
// service is unhealthy.
func (sm *ServiceManager) HealthHandler(ctx context.Context, checkLiveness bool) (int, string, error) {
	overallStatus := http.StatusOK

	services := sm.snapshot()

	msgs := make([]string, 0, len(services))

	for _, service := range services {
		status, details, err := service.instance.Health(ctx, checkLiveness)
		if err != nil || status != http.StatusOK {
			overallStatus = http.StatusServiceUnavailable
		}

		if details == "" {
			details = "{}"
		}

		msgs = append(msgs, fmt.Sprintf(`{"service": "%s","status": "%d","dependencies": [%s]}`, service.name, status, details))
	}

	jsonStr := fmt.Sprintf(`{"status": "%d", "services": [%s]}`, overallStatus, strings.Join(msgs, ",\n"))

	var jsonFormatted bytes.Buffer
	if err := json.Indent(&jsonFormatted, []byte(jsonStr), "", "  "); err == nil {
		jsonStr = jsonFormatted.String()
	}

	return overallStatus, jsonStr, nil
}
