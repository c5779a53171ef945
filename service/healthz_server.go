package service

import (
	"context"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

// HealthzServer answers liveness probes while a regression is running
type HealthzServer struct {
	ctx      context.Context
	server   *http.Server
	listener net.Listener
	log      log.Logger
}

// Listen binds addr. Serving starts with Serve.
func (h *HealthzServer) Listen(ctx context.Context, addr string) error {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", h.Handle)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	h.server = &http.Server{
		Handler: c.Handler(hdlr),
		Addr:    addr,
	}
	h.ctx = ctx
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	h.listener = l
	return nil
}

func (h *HealthzServer) Serve() error {
	return h.server.Serve(h.listener)
}

func (h *HealthzServer) Addr() string {
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

func (h *HealthzServer) Shutdown() error {
	if h.listener == nil {
		return nil
	}
	return h.server.Shutdown(h.ctx)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	h.log.Debug("Received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}
