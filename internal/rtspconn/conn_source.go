package rtspconn

import (
	"fmt"
	"net"

	"github.com/wangyl/rtspd/internal/mount"
	"github.com/wangyl/rtspd/internal/rtpio"
	"github.com/wangyl/rtspd/internal/rtspmsg"
)

// handleAnnounce implements the (Unknown,Init) -> (Source,Init) transition
// of spec §4.2: create a Mount from the SDP body if the path is free.
func (c *Connection) handleAnnounce(req *rtspmsg.Request) *rtspmsg.Response {
	if c.role != RoleUnknown || c.state != StateInit {
		return c.respond(rtspmsg.StatusMethodNotValidInThisState, req)
	}
	if len(req.Body) == 0 {
		return c.respond(rtspmsg.StatusBadRequest, req)
	}

	path, _, _ := mount.SplitStreamPath(req.URI)
	m, err := c.deps.Registry.Create(path, req.Body)
	if err != nil {
		return c.respond(rtspmsg.StatusForbidden, req)
	}
	if m.StreamCount() == 0 {
		c.deps.Registry.Unmount(path)
		return c.respond(rtspmsg.StatusBadRequest, req)
	}

	c.role = RoleSource
	c.sourceMountPath = path
	c.sourceMount = m
	return c.respond(rtspmsg.StatusOK, req)
}

// handleSetup dispatches to the Source or Client SETUP handler depending
// on which role this connection has been promoted to.
func (c *Connection) handleSetup(req *rtspmsg.Request) *rtspmsg.Response {
	switch {
	case c.role == RoleSource && (c.state == StateInit || c.state == StateReady):
		return c.handleSourceSetup(req)
	case c.role == RoleUnknown && c.state == StateInit:
		return c.handleClientSetup(req)
	case c.role == RoleClient && (c.state == StateInit || c.state == StateReady):
		return c.handleClientSetup(req)
	default:
		return c.respond(rtspmsg.StatusMethodNotValidInThisState, req)
	}
}

// handleSourceSetup implements the Source SETUP transition: allocate a
// stream, negotiate interleaved channels or a server_port pair, and
// assign the session id on the first SETUP.
func (c *Connection) handleSourceSetup(req *rtspmsg.Request) *rtspmsg.Response {
	transportHeader, ok := req.Header.Get(rtspmsg.HeaderTransport)
	if !ok {
		return c.respond(rtspmsg.StatusBadRequest, req)
	}
	t, ok := parseTransport(transportHeader)
	if !ok {
		return c.respond(rtspmsg.StatusBadRequest, req)
	}

	_, idx, hasIdx := mount.SplitStreamPath(req.URI)
	if !hasIdx {
		idx = c.nextSourceIndex
	}
	c.nextSourceIndex = idx + 1
	stream := c.sourceMount.StreamOrCreate(idx)

	c.ensureSession()
	c.state = StateReady

	resp := c.respond(rtspmsg.StatusOK, req)

	if t.interleaved {
		c.sourceChannels[idx] = trackChannels{rtp: t.rtpChan, rtcp: t.rtcpChan}
		c.channelToStream[t.rtpChan] = idx
		c.channelToStream[t.rtcpChan] = idx
		c.interleaved = true
		c.parser.InterleavedAllowed = true
		resp.WithHeader(rtspmsg.HeaderTransport, transportHeader)
		return resp
	}

	rtpConn, rtcpConn, port, err := c.deps.Allocator.Allocate(c.deps.BindHost)
	if err != nil {
		return c.respond(rtspmsg.StatusInternalServerError, req)
	}
	c.pendingConns[idx] = [2]*net.UDPConn{rtpConn, rtcpConn}
	stream.RTPPortStart = port

	resp.WithHeader(rtspmsg.HeaderTransport, transportHeader+fmt.Sprintf(";server_port=%d-%d", port, port+1))
	return resp
}

// handleRecord implements (Source,Ready) -> (Source,Recording): open RTP
// listeners for every pending UDP stream (interleaved streams need no
// listener, since ingress arrives as frames on this same socket), mark
// the Mount mounted, and record the source host.
func (c *Connection) handleRecord(req *rtspmsg.Request) *rtspmsg.Response {
	if c.role != RoleSource || c.state != StateReady {
		return c.respond(rtspmsg.StatusMethodNotValidInThisState, req)
	}

	for idx, conns := range c.pendingConns {
		stream, _ := c.sourceMount.Stream(idx)
		c.listeners[idx] = rtpio.NewListener(stream, conns[0], conns[1], c.deps.Logger)
	}
	c.pendingConns = make(map[int][2]*net.UDPConn)

	if !c.sourceMount.MarkRecording(c.id, remoteHost(c.netConn)) {
		return c.respond(rtspmsg.StatusForbidden, req)
	}

	c.state = StateRecording
	return c.respond(rtspmsg.StatusOK, req)
}
