package mediaserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
)

// Server serves registered local media files over plain HTTP/1.1 with
// Range support, bound to an IPv4-only listener.
type Server struct {
	httpServer  *http.Server
	listener    net.Listener
	registry    *registry
	advertiseIP string
}

// NewServer constructs a server. advertiseIP overrides the detected
// primary IPv4 address used to build returned URLs; pass "" to
// auto-detect via primaryIPv4.
func NewServer(advertiseIP string) *Server {
	return &Server{
		registry:    newRegistry(),
		advertiseIP: advertiseIP,
	}
}

// Start binds tcp4 on the given port (0 lets the OS pick) and begins
// serving. It returns the actual bound port.
func (s *Server) Start(port int) (int, error) {
	ln, err := net.Listen("tcp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return 0, fmt.Errorf("mediaserver: listen: %w", err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/media/", s.handleMedia)
	s.httpServer = &http.Server{Handler: mux}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("mediaserver: serve exited", "error", err)
		}
	}()

	boundPort := ln.Addr().(*net.TCPAddr).Port
	slog.Info("mediaserver: listening", "port", boundPort)
	return boundPort, nil
}

// Stop closes the listener and clears every registration.
func (s *Server) Stop() error {
	s.registry.clear()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(context.Background())
}

// Register stores absPath under a content-addressed /media/ URL path and
// returns the full absolute URL the receiver should fetch.
func (s *Server) Register(absPath string) string {
	urlPath := s.registry.register(absPath)
	host := s.advertiseIP
	if host == "" {
		host = primaryIPv4()
		if host == "127.0.0.1" {
			slog.Warn("mediaserver: no non-loopback IPv4 interface found, falling back to loopback (only this host can fetch the URL)")
		}
	}
	port := s.listener.Addr().(*net.TCPAddr).Port
	return fmt.Sprintf("http://%s:%d%s", host, port, urlPath)
}
