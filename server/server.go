// Package server runs the HTTP listener with optional TLS.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

const (
	DefaultPort = "8080"

	TLSModeAutoCert = "autocert"
	TLSModeFile     = "file"
	DefaultTLSMode  = TLSModeAutoCert

	shutdownTimeout = 10 * time.Second
)

type ServerTLSAutoCert struct {
	CacheDir string
	Domains  []string
	Email    string
}

type ServerTLS struct {
	Enabled  bool
	Mode     string
	AutoCert *ServerTLSAutoCert
	CertFile string
	KeyFile  string
}

type Server struct {
	Port string
	Host string
	TLS  ServerTLS
}

type UnknownTLSModeError struct {
	Mode string
}

func (err UnknownTLSModeError) Error() string {
	return fmt.Sprintf("unknown tls mode %q", err.Mode)
}

func domainsToHTTPSAddress(domains []string) string {
	addresses := make([]string, 0, len(domains))
	for _, domain := range domains {
		addresses = append(addresses, "https://"+domain)
	}

	return strings.Join(addresses, ", ")
}

func (s *Server) address() string {
	port := s.Port
	if port == "" {
		port = DefaultPort
	}

	return net.JoinHostPort(s.Host, port)
}

// Run serves handler until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              s.address(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serve, err := s.serveFunc(ctx, httpServer)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)

	go func() {
		serveErr <- serve()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	slog.InfoContext(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err = httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	err = <-serveErr
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

func (s *Server) serveFunc(ctx context.Context, httpServer *http.Server) (func() error, error) {
	if !s.TLS.Enabled {
		slog.InfoContext(ctx, "server listening", "address", "http://"+httpServer.Addr)

		return httpServer.ListenAndServe, nil
	}

	switch s.TLS.Mode {
	case TLSModeAutoCert:
		if s.TLS.AutoCert == nil || len(s.TLS.AutoCert.Domains) == 0 {
			return nil, errors.New("autocert tls mode needs at least one domain")
		}

		manager := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Cache:      autocert.DirCache(s.TLS.AutoCert.CacheDir),
			HostPolicy: autocert.HostWhitelist(s.TLS.AutoCert.Domains...),
			Email:      s.TLS.AutoCert.Email,
		}

		httpServer.TLSConfig = manager.TLSConfig()

		slog.InfoContext(ctx, "server listening", "address", domainsToHTTPSAddress(s.TLS.AutoCert.Domains))

		return func() error { return httpServer.ListenAndServeTLS("", "") }, nil
	case TLSModeFile:
		if s.TLS.CertFile == "" || s.TLS.KeyFile == "" {
			return nil, errors.New("file tls mode needs both cert file and key file")
		}

		httpServer.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}

		slog.InfoContext(ctx, "server listening", "address", "https://"+httpServer.Addr)

		return func() error { return httpServer.ListenAndServeTLS(s.TLS.CertFile, s.TLS.KeyFile) }, nil
	default:
		return nil, UnknownTLSModeError{Mode: s.TLS.Mode}
	}
}
