// Package rtspserver is the TCP acceptor: it owns the listener socket and
// the collaborators every accepted Connection shares, grounded on the
// teacher's app.RtspService.
package rtspserver

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/wangyl/rtspd/internal/logging"
	"github.com/wangyl/rtspd/internal/mount"
	"github.com/wangyl/rtspd/internal/rtpio"
	"github.com/wangyl/rtspd/internal/rtspauth"
	"github.com/wangyl/rtspd/internal/rtspconn"
	"github.com/wangyl/rtspd/internal/sessionid"
)

// Options configures Server construction.
type Options struct {
	ListenAddress string
	ListenPort    int
	RtpPortMin    int
	RtpPortMax    int
	ReadTimeout   time.Duration
	Auth          rtspauth.Challenger
	Logger        logging.Logger
}

// Server accepts RTSP control connections and spawns one rtspconn.Connection
// per socket, all sharing a single mount.Registry, rtpio.Allocator, and
// sessionid.Generator, per spec §2 and §9.
type Server struct {
	opt      Options
	listener net.Listener

	registry  *mount.Registry
	allocator *rtpio.Allocator
	sessions  *sessionid.Generator

	connCounter int64
}

// New constructs a Server with fresh collaborators. It does not listen
// yet; call Listen then Serve.
func New(opt Options) (*Server, error) {
	if opt.Logger == nil {
		opt.Logger = logging.Nop{}
	}
	if opt.Auth == nil {
		opt.Auth = rtspauth.NoAuth{}
	}
	sessions, err := sessionid.NewGenerator(1)
	if err != nil {
		return nil, fmt.Errorf("session id generator: %w", err)
	}
	return &Server{
		opt:       opt,
		registry:  mount.NewRegistry(),
		allocator: rtpio.NewAllocator(opt.RtpPortMin, opt.RtpPortMax),
		sessions:  sessions,
	}, nil
}

// Listen binds the control socket. Callers should treat a non-nil error
// as fatal (spec's exit code 2, "listen socket bind failure").
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.opt.ListenAddress, s.opt.ListenPort)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = l
	s.opt.Logger.Infof("rtspserver: listening on %s", addr)
	return nil
}

// Serve accepts connections until the listener is closed, spawning one
// goroutine per accepted socket, per spec §5's per-connection goroutine
// model. It returns once Close makes Accept fail.
func (s *Server) Serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.opt.Logger.Warnf("rtspserver: accept: %v", err)
			return
		}
		id := s.nextConnID(conn)
		deps := rtspconn.Deps{
			Registry:    s.registry,
			Allocator:   s.allocator,
			SessionID:   s.sessions,
			Logger:      s.opt.Logger,
			Auth:        s.opt.Auth,
			ReadTimeout: s.opt.ReadTimeout,
			BindHost:    s.opt.ListenAddress,
		}
		c := rtspconn.New(id, conn, deps)
		go c.Serve()
	}
}

// Close stops accepting new connections. In-flight Connections run their
// own cleanup via stop() when their socket errors out.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// Addr reports the bound listen address, useful for tests that bind an
// ephemeral port.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) nextConnID(conn net.Conn) string {
	n := atomic.AddInt64(&s.connCounter, 1)
	return fmt.Sprintf("%s-%d", conn.RemoteAddr().String(), n)
}
