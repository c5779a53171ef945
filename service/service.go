package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/hwverif/gen-regress/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = 8080
)

// Config holds the listen addresses of the HTTP endpoints. Port 0 binds a
// free port.
type Config struct {
	HealthzHost string
	HealthzPort int
	MetricsHost string
	MetricsPort int
	Log         log.Logger
}

type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	cfg Config
	wg  sync.WaitGroup
}

func New(cfg Config) *Service {
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	return &Service{
		Healthz: &HealthzServer{log: cfg.Log},
		Metrics: &MetricsServer{},
		cfg:     cfg,
	}
}

type server interface {
	Listen(ctx context.Context, addr string) error
	Serve() error
}

// Start launches both servers in the background. Listen failures are logged
// and counted but never stop the regression.
func (s *Service) Start(ctx context.Context) {
	s.cfg.Log.Info("service starting")

	s.serve(ctx, "healthz", net.JoinHostPort(s.cfg.HealthzHost, strconv.Itoa(s.cfg.HealthzPort)), s.Healthz)
	s.serve(ctx, "metrics", net.JoinHostPort(s.cfg.MetricsHost, strconv.Itoa(s.cfg.MetricsPort)), s.Metrics)

	s.cfg.Log.Info("service started")
}

func (s *Service) serve(ctx context.Context, name, addr string, srv server) {
	s.cfg.Log.Info("starting server", "name", name, "addr", addr)
	if err := srv.Listen(ctx, addr); err != nil {
		s.cfg.Log.Error("error starting server", "name", name, "err", err)
		metrics.RecordErrorDetails("error starting "+name+" server", err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.cfg.Log.Error("server stopped unexpectedly", "name", name, "err", err)
			metrics.RecordErrorDetails("error serving "+name, err)
		}
	}()
}

func (s *Service) Shutdown() {
	s.cfg.Log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	s.cfg.Log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	s.cfg.Log.Info("metrics stopped")

	s.wg.Wait()
	s.cfg.Log.Info("service stopped")
}
