package service

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes the default prometheus registry on /metrics
type MetricsServer struct {
	ctx      context.Context
	server   *http.Server
	listener net.Listener
}

// Listen binds addr. Serving starts with Serve.
func (m *MetricsServer) Listen(ctx context.Context, addr string) error {
	hdlr := http.NewServeMux()
	hdlr.Handle("/metrics", promhttp.Handler())
	m.server = &http.Server{
		Handler: hdlr,
		Addr:    addr,
	}
	m.ctx = ctx
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	m.listener = l
	return nil
}

func (m *MetricsServer) Serve() error {
	return m.server.Serve(m.listener)
}

func (m *MetricsServer) Addr() string {
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

func (m *MetricsServer) Shutdown() error {
	if m.listener == nil {
		return nil
	}
	return m.server.Shutdown(m.ctx)
}
