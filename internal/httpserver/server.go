// Package httpserver implements the device's HTTP/1.1 front end: a raw
// TCP listener with a bounded connection pool, a small hand-rolled
// request parser, a static route table, in-binary static asset
// serving, and in-place upgrade to the framed control channel on the
// same port.
package httpserver

import (
	"net"
	"time"

	"github.com/desaster/nethid-bridge/internal/auth"
	"github.com/desaster/nethid-bridge/internal/hidcore"
	"github.com/desaster/nethid-bridge/internal/logging"
	"github.com/desaster/nethid-bridge/internal/wsframe"
)

var log = logging.L("httpserver")

const (
	// MaxConnections bounds the connection pool; a new TCP connection
	// arriving when the pool is full is refused outright.
	MaxConnections = 6

	// MaxBodySize rejects any POST whose Content-Length exceeds this.
	MaxBodySize = 512

	// RecvBufferSize is the per-connection header accumulation buffer.
	RecvBufferSize = 2048

	// IdleTimeout is the read deadline set once when a connection is
	// accepted. It is measured from accept and is not extended as bytes
	// arrive, so it also closes a connection that is still making
	// progress when it expires. The framed-channel state disables it
	// entirely.
	IdleTimeout = 10 * time.Second

	// fileChunkSize caps a single static-asset write, mirroring the
	// original firmware's send-window-limited streaming.
	fileChunkSize = 1460
)

// Server owns the HTTP listener and the subsystems its handlers and the
// framed channel need.
type Server struct {
	Routes     []Route
	Auth       *auth.Context
	Dispatcher *hidcore.Dispatcher
	WSManager  *wsframe.Manager

	// StatusFrame builds the initial server-pushed status frame for a
	// freshly upgraded framed connection.
	StatusFrame func() []byte

	// BypassAuth, when non-nil and returning true, lets every route
	// through regardless of token validity. The JSON API permits
	// unauthenticated access while the device is in provisioning/AP
	// mode, since there is no way to have learned a token yet.
	BypassAuth func() bool

	listener net.Listener
	slots    chan struct{}
}

// New returns a Server ready to Serve, with its connection pool sized
// to MaxConnections.
func New() *Server {
	return &Server{
		slots: make(chan struct{}, MaxConnections),
	}
}

// ListenAndServe binds addr (e.g. ":80") and serves until Close is
// called.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Close is called or Accept
// fails permanently.
func (s *Server) Serve(ln net.Listener) error {
	s.listener = ln
	log.Info("http server listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}

		select {
		case s.slots <- struct{}{}:
			go s.handleConnection(conn)
		default:
			log.Warn("connection pool exhausted, refusing connection", "remote", conn.RemoteAddr())
			conn.Close()
		}
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) releaseSlot() {
	select {
	case <-s.slots:
	default:
	}
}
