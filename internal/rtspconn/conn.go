// Package rtspconn implements the per-connection RTSP state machine:
// parsing, role/state dispatch, RTP ingress/egress wiring, and teardown,
// per spec §4.2-§4.4 and §9 ("single Connection with a tagged role
// field and a dispatch table" rather than the teacher's trait
// composition).
package rtspconn

import (
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/wangyl/rtspd/internal/logging"
	"github.com/wangyl/rtspd/internal/mount"
	"github.com/wangyl/rtspd/internal/rtpio"
	"github.com/wangyl/rtspd/internal/rtspauth"
	"github.com/wangyl/rtspd/internal/rtspmsg"
	"github.com/wangyl/rtspd/internal/sessionid"
)

// Role tags which half of the protocol a Connection has been promoted
// to, per spec §2.4: a connection starts role-agnostic and is promoted
// by its first method.
type Role int

const (
	RoleUnknown Role = iota
	RoleSource
	RoleClient
)

// State is the session state of spec §3's RtspSession entity.
type State int

const (
	StateInit State = iota
	StateReady
	StatePlaying
	StateRecording
)

// Deps bundles the server-wide collaborators a Connection needs. It is
// built once by the acceptor (internal/rtspserver) and shared by every
// Connection, per spec §9's "bundle them into a single Server value."
type Deps struct {
	Registry  *mount.Registry
	Allocator *rtpio.Allocator
	SessionID *sessionid.Generator
	Logger    logging.Logger
	Auth      rtspauth.Challenger

	ReadTimeout time.Duration
	BindHost    string
}

func (d *Deps) fixup() {
	if d.Logger == nil {
		d.Logger = logging.Nop{}
	}
	if d.Auth == nil {
		d.Auth = rtspauth.NoAuth{}
	}
	if d.BindHost == "" {
		d.BindHost = "0.0.0.0"
	}
}

type trackChannels struct {
	rtp, rtcp byte
}

// Connection is the state machine for one accepted TCP socket.
type Connection struct {
	id      string
	netConn net.Conn
	parser  *rtspmsg.Parser
	deps    Deps

	writeMu sync.Mutex

	role      Role
	state     State
	sessionID string

	// Source-only state.
	sourceMountPath string
	sourceMount     *mount.Mount
	pendingConns    map[int][2]*net.UDPConn   // stream index -> (rtp,rtcp) bound at SETUP, promoted at RECORD
	listeners       map[int]*rtpio.Listener   // stream index -> live listener, owned by this connection
	sourceChannels  map[int]trackChannels     // stream index -> interleaved channel pair (source ingress)
	channelToStream map[byte]int              // interleaved RTP channel -> stream index, for demuxing ingress frames
	nextSourceIndex int

	// Client-only state.
	clientMountPath string
	clientMount     *mount.Mount
	subscriptions   map[int]*mount.Stream // stream index -> Stream this connection subscribed to
	nextClientIndex int

	interleaved bool // at least one SETUP on this connection negotiated interleaved=a-b

	stopOnce sync.Once
}

// New constructs a Connection for a freshly accepted socket. id should be
// unique per connection (the acceptor uses the remote address plus a
// counter); it doubles as the weak reference Subscriber/Mount hold back
// to this connection.
func New(id string, netConn net.Conn, deps Deps) *Connection {
	deps.fixup()
	return &Connection{
		id:              id,
		netConn:         netConn,
		parser:          rtspmsg.NewParser(netConn),
		deps:            deps,
		pendingConns:    make(map[int][2]*net.UDPConn),
		listeners:       make(map[int]*rtpio.Listener),
		sourceChannels:  make(map[int]trackChannels),
		channelToStream: make(map[byte]int),
		subscriptions:   make(map[int]*mount.Stream),
	}
}

// Serve runs the connection's read loop until the peer disconnects or a
// fatal error occurs, then runs cleanup exactly once (spec §4.3).
func (c *Connection) Serve() {
	defer func() {
		if r := recover(); r != nil {
			c.deps.Logger.Errorf("rtspconn %s: panic: %v\n%s", c.id, r, debug.Stack())
		}
		c.stop()
	}()

	for {
		if c.deps.ReadTimeout > 0 {
			c.netConn.SetReadDeadline(time.Now().Add(c.deps.ReadTimeout))
		}
		msg, err := c.parser.Next()
		if err != nil {
			if rtspmsg.Is(err, rtspmsg.KindPeerClosed) {
				return
			}
			if rtspmsg.Is(err, rtspmsg.KindProtocolViolation) || rtspmsg.Is(err, rtspmsg.KindUnsupportedVersion) {
				// No reliable CSeq to echo (that may be exactly what's
				// missing); send 400 and keep the connection open, per
				// spec §7's propagation policy for protocol-level errors.
				c.writeResponse(rtspmsg.NewResponse(rtspmsg.StatusBadRequest, ""))
				c.deps.Logger.Warnf("rtspconn %s: %v", c.id, err)
				continue
			}
			// KindPeerReset and anything else mean the socket itself is
			// gone; no response can be sent, so clean up and stop.
			c.deps.Logger.Warnf("rtspconn %s: %v", c.id, err)
			return
		}

		if msg.Frame != nil {
			c.handleInterleavedIngress(msg.Frame)
			continue
		}

		resp := c.handleRequest(msg.Request)
		if err := c.writeResponse(resp); err != nil {
			c.deps.Logger.Warnf("rtspconn %s: write response: %v", c.id, err)
			return
		}
		if msg.Request.Method == rtspmsg.TEARDOWN {
			return
		}
	}
}

func (c *Connection) writeResponse(resp *rtspmsg.Response) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.netConn.Write(resp.Bytes()); err != nil {
		return rtspmsg.IoError(err)
	}
	return nil
}

// handleInterleavedIngress demultiplexes an interleaved frame arriving on
// the Source's own control socket, per spec §4.4: "the channel ID is
// resolved via the per-connection channel -> stream_index map ... and
// the payload is broadcast identically."
func (c *Connection) handleInterleavedIngress(frame *rtspmsg.InterleavedFrame) {
	idx, ok := c.channelToStream[frame.Channel]
	if !ok {
		return
	}
	stream, ok := c.sourceMount.Stream(idx)
	if !ok {
		return
	}
	ch := c.sourceChannels[idx]
	if frame.Channel == ch.rtp {
		stream.BroadcastRTP(frame.Payload)
	} else {
		stream.BroadcastRTCP(frame.Payload)
	}
}

func (c *Connection) respond(code int, req *rtspmsg.Request) *rtspmsg.Response {
	cseq := ""
	if req != nil {
		cseq = req.CSeq()
	}
	r := rtspmsg.NewResponse(code, cseq)
	if c.sessionID != "" {
		r.WithSession(c.sessionID)
	}
	return r
}

func (c *Connection) handleRequest(req *rtspmsg.Request) *rtspmsg.Response {
	if ok, wwwAuth := c.deps.Auth.Challenge(req); !ok && req.Method != rtspmsg.OPTIONS {
		resp := c.respond(rtspmsg.StatusUnauthorized, req)
		if wwwAuth != "" {
			resp.WithHeader(rtspmsg.HeaderWWWAuth, wwwAuth)
		}
		return resp
	}

	if !c.checkSession(req) {
		return c.respond(rtspmsg.StatusSessionNotFound, req)
	}

	switch req.Method {
	case rtspmsg.OPTIONS:
		return c.handleOptions(req)
	case rtspmsg.ANNOUNCE:
		return c.handleAnnounce(req)
	case rtspmsg.DESCRIBE:
		return c.handleDescribe(req)
	case rtspmsg.SETUP:
		return c.handleSetup(req)
	case rtspmsg.RECORD:
		return c.handleRecord(req)
	case rtspmsg.PLAY:
		return c.handlePlay(req)
	case rtspmsg.PAUSE:
		return c.handlePause(req)
	case rtspmsg.TEARDOWN:
		return c.handleTeardown(req)
	case rtspmsg.GetParameter, rtspmsg.SetParameter:
		return c.respond(rtspmsg.StatusOK, req)
	default:
		return c.respond(rtspmsg.StatusNotImplemented, req)
	}
}

// checkSession rejects a request whose Session header does not match the
// session this connection has established. A request that carries no
// Session header is accepted, and before this connection has a session
// no Session header is checked at all. OPTIONS, DESCRIBE, and ANNOUNCE
// may legitimately arrive before a session exists on this connection
// (or address a different mount entirely) and are exempt.
func (c *Connection) checkSession(req *rtspmsg.Request) bool {
	if c.sessionID == "" {
		return true
	}
	switch req.Method {
	case rtspmsg.OPTIONS, rtspmsg.DESCRIBE, rtspmsg.ANNOUNCE:
		return true
	}
	got, ok := req.Header.Get(rtspmsg.HeaderSession)
	if !ok {
		return true // no Session header: not checked
	}
	return got == c.sessionID
}

func (c *Connection) handleOptions(req *rtspmsg.Request) *rtspmsg.Response {
	public := "OPTIONS, DESCRIBE, SETUP, PLAY, PAUSE, TEARDOWN, GET_PARAMETER, SET_PARAMETER"
	if c.role != RoleClient {
		public += ", ANNOUNCE, RECORD"
	}
	return c.respond(rtspmsg.StatusOK, req).WithHeader(rtspmsg.HeaderPublic, public)
}

func (c *Connection) ensureSession() {
	if c.sessionID == "" {
		c.sessionID = c.deps.SessionID.Next()
	}
}

func remoteHost(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
