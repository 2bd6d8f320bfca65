package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/iceorch/iceorch/pkg/logger"
	"golang.org/x/crypto/acme/autocert"
)

// Server is an HTTP(S) server that holds its listener from the start,
// so Addr has the real port before the server runs.
type Server struct {
	http.Server

	opts     Options
	certs    *autocert.Manager
	listener *Listener
	redirect *http.Server
	log      *logger.Logger
}

// NewServer binds the address and builds the handler.
// The handler func gets the bound server, its Addr is final by then.
func NewServer(address string, handler func(*Server) Handler, options ...Option) (*Server, error) {
	opts := Options{
		HttpsRedirect: true,
		IdleTimeout:   120 * time.Second,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
	}
	opts.override(options...)
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}

	s := &Server{
		Server: http.Server{
			IdleTimeout:  opts.IdleTimeout,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		},
		opts: opts,
		log:  opts.Logger,
	}
	if opts.Https && opts.IsAutoHttpsCert() {
		s.certs = autoCert(opts.HttpsDomain, opts.HttpsCacheDir)
		s.TLSConfig = s.certs.TLSConfig()
	}

	if address == "" {
		address = ":" + s.Scheme()
		s.log.Warn().Msgf("No server address, %v is used", address)
	}
	ls, err := NewListener(address, opts.PortRoll)
	if err != nil {
		return nil, fmt.Errorf("listen %v: %w", address, err)
	}
	s.listener = ls
	s.Addr = buildAddress(address, *ls)
	s.Handler = handler(s)
	return s, nil
}

func (s *Server) Mux() *Mux { return NewServeMux("") }

func (s *Server) Run() {
	if s.opts.Https && s.opts.HttpsRedirect {
		s.startRedirect()
	}
	go s.serve()
}

func (s *Server) serve() {
	s.log.Debug().Msgf("Serving %v at %v", s.Scheme(), s.Addr)
	var err error
	if s.opts.Https {
		err = s.ServeTLS(s.listener, s.opts.HttpsCert, s.opts.HttpsKey)
	} else {
		err = s.Serve(s.listener)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error().Err(err).Msgf("%v server has failed", s.Scheme())
	}
}

// Shutdown gracefully stops the server and its redirect server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.redirect != nil {
		_ = s.redirect.Shutdown(ctx)
	}
	return s.Server.Shutdown(ctx)
}

func (s *Server) Listener() net.Listener { return s.listener.Listener }

func (s *Server) Scheme() string {
	if s.opts.Https {
		return "https"
	}
	return "http"
}

// startRedirect sends plain HTTP clients over to HTTPS.
// It also answers ACME challenges when certificates are automatic.
func (s *Server) startRedirect() {
	ls, err := NewListener(s.opts.HttpsRedirectAddress, false)
	if err != nil {
		s.log.Error().Err(err).Msg("HTTPS redirect is off")
		return
	}
	target := s.Addr
	if s.opts.HttpsDomain != "" {
		target = buildAddress(s.opts.HttpsDomain, *s.listener)
	}
	var h Handler = redirectTo(target, s.log)
	if s.certs != nil {
		h = s.certs.HTTPHandler(h)
	}
	s.redirect = &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	s.log.Info().Msgf("Redirecting %v to https://%v", ls.Addr(), target)
	go func() {
		if err := s.redirect.Serve(ls); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("HTTPS redirect server has failed")
		}
	}()
}

func redirectTo(host string, log *logger.Logger) HandlerFunc {
	return func(w ResponseWriter, r *Request) {
		to := url.URL{Scheme: "https", Host: host, Path: r.URL.Path, RawQuery: r.URL.RawQuery}
		log.Debug().Str("from", r.Host+r.URL.String()).Str("to", to.String()).Msg("redirect")
		http.Redirect(w, r, to.String(), http.StatusFound)
	}
}
