// Package legacy runs the legacy Bitcoin P2P engine as a service: the peer
// manager, the header chain, the address book and the bridge that publishes
// what peers send to Kafka.
package legacy

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/settings"
	"github.com/bsv-blockchain/legacy-p2p/ulogger"
	"github.com/bsv-blockchain/legacy-p2p/util/health"
	"github.com/bsv-blockchain/legacy-p2p/util/servicemanager"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	logger      ulogger.Logger
	settings    *settings.Settings
	chain       *HeaderChain
	addressBook *AddressBook
	producers   Producers
	bridge      *Bridge
	peerManager *PeerManager
	e           *echo.Echo
	listener    net.Listener
}

// New will return a server instance with the logger stored within it
func New(logger ulogger.Logger, tSettings *settings.Settings) *Server {
	initPrometheusMetrics()

	return &Server{
		logger:   logger,
		settings: tSettings,
	}
}

// Health reports liveness unconditionally. Readiness needs at least one
// connected peer and, where configured, a responding HTTP API and p2p listener.
func (s *Server) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	if checkLiveness {
		return http.StatusOK, "OK", nil
	}

	checks := []health.Check{
		{Name: "peers", Check: s.checkPeers},
	}

	if s.settings.Legacy.HTTPListenAddress != "" {
		checks = append(checks, health.Check{
			Name:  "http",
			Check: health.CheckHTTPServer(httpAddress(s.settings.Legacy.HTTPListenAddress), "/headers/tip"),
		})
	}

	if s.listener != nil {
		checks = append(checks, health.Check{
			Name:  "p2p",
			Check: health.CheckListener(s.listener.Addr().String()),
		})
	}

	return health.CheckAll(ctx, checkLiveness, checks)
}

func (s *Server) checkPeers(context.Context, bool) (int, string, error) {
	if s.peerManager == nil || s.peerManager.Count() == 0 {
		return http.StatusServiceUnavailable, "no peers connected", nil
	}

	return http.StatusOK, "peers connected", nil
}

// httpAddress turns a listen address such as ":8099" into a URL to call it on.
func httpAddress(listen string) string {
	if strings.HasPrefix(listen, ":") {
		listen = "localhost" + listen
	}

	return "http://" + listen
}

func (s *Server) Init(ctx context.Context) (err error) {
	params := s.settings.ChainCfgParams
	if params == nil {
		return errors.NewConfigurationError("no chain params configured")
	}

	if s.settings.Legacy.VerifyCheckpoint && !params.VerifyCheckpoint.Complete() {
		return errors.NewConfigurationError("checkpoint verification is on but the %s checkpoint is incomplete, set checkpoint_filterHeader", params.Name)
	}

	s.chain = NewHeaderChain(params)
	s.addressBook = NewAddressBook(s.logger, s.settings.Legacy.AddressTTL)

	if s.producers, err = NewProducers(ctx, s.logger, s.settings.Kafka); err != nil {
		return err
	}

	s.bridge = NewBridge(s.logger, s.chain, s.producers, s.settings.Legacy.CacheExpiry)
	s.peerManager = NewPeerManager(s.logger, s.settings, s.chain, s.addressBook, s.bridge)

	s.e = echo.New()
	s.e.HideBanner = true
	s.e.HidePort = true

	s.e.GET("/block/:hash", s.bridge.BlockHandler)
	s.e.GET("/tx/:hash", s.bridge.TxHandler)
	s.e.GET("/headers/tip", s.bridge.TipHandler)
	s.e.GET("/peers", s.PeersHandler)
	s.e.GET("/services", s.ServicesHandler)
	s.e.GET("/health", s.HealthHandler)
	s.e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.logger.Infof("[Legacy] initialised for %s, %d configured peers", params.Name, len(s.settings.Legacy.ConnectPeers))

	return nil
}

// Start runs until ctx is done.
func (s *Server) Start(ctx context.Context, readyCh chan<- struct{}) error {
	s.addressBook.Start()

	if addr := s.settings.Legacy.ListenAddress; addr != "" {
		var err error

		if s.listener, err = net.Listen("tcp", addr); err != nil {
			return errors.NewServiceError("failed to listen on %s", addr, err)
		}

		servicemanager.AddListenerInfo("legacy p2p: " + s.listener.Addr().String())

		go s.acceptLoop(ctx)
	}

	if addr := s.settings.Legacy.HTTPListenAddress; addr != "" {
		servicemanager.AddListenerInfo("legacy http: " + addr)

		go func() {
			if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Errorf("[Legacy] error starting echo server: %v", err)
			}
		}()
	}

	s.peerManager.Start(ctx)

	close(readyCh)

	<-ctx.Done()

	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				s.logger.Errorf("[Legacy] accept failed: %v", err)
			}

			return
		}

		s.peerManager.HandleInbound(ctx, conn)
	}
}

func (s *Server) Stop(ctx context.Context) error {
	var errs []error

	if s.listener != nil {
		_ = s.listener.Close()
	}

	if s.peerManager != nil {
		errs = append(errs, s.peerManager.Stop(ctx))
	}

	if s.e != nil {
		errs = append(errs, s.e.Shutdown(ctx))
	}

	if s.addressBook != nil {
		s.addressBook.Stop()
	}

	s.producers.Stop()

	return errors.Join(errs...)
}

func (s *Server) PeersHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.peerManager.Peers())
}

func (s *Server) ServicesHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, servicemanager.GetListenerInfos())
}

func (s *Server) HealthHandler(c echo.Context) error {
	status, details, _ := s.Health(c.Request().Context(), c.QueryParam("liveness") == "true")

	return c.String(status, details)
}
