package rtspconn

import (
	"github.com/wangyl/rtspd/internal/mount"
	"github.com/wangyl/rtspd/internal/rtpio"
	"github.com/wangyl/rtspd/internal/rtspmsg"
)

// handleDescribe answers with a mounted Mount's SDP verbatim, satisfying
// invariant 5. Per SPEC_FULL.md's resolution of Open Question 1, DESCRIBE
// is available on any Connection regardless of role, against the
// registry — not gated on whether this connection is itself a Source.
func (c *Connection) handleDescribe(req *rtspmsg.Request) *rtspmsg.Response {
	path, _, _ := mount.SplitStreamPath(req.URI)
	m, ok := c.deps.Registry.Lookup(path)
	if !ok || !m.Mounted() {
		return c.respond(rtspmsg.StatusNotFound, req)
	}

	if c.role == RoleUnknown {
		c.role = RoleClient
	}
	c.clientMountPath = path
	c.clientMount = m

	resp := c.respond(rtspmsg.StatusOK, req)
	resp.WithHeader("Content-Type", "application/sdp")
	resp.WithBody(m.SDP())
	return resp
}

// handleClientSetup implements (Client,Init) -> (Client,Ready): require an
// existing mounted Mount, parse the client's transport, and register a
// Subscriber on the target Stream.
func (c *Connection) handleClientSetup(req *rtspmsg.Request) *rtspmsg.Response {
	path, idx, hasIdx := mount.SplitStreamPath(req.URI)
	m, ok := c.deps.Registry.Lookup(path)
	if !ok || !m.Mounted() {
		return c.respond(rtspmsg.StatusNotFound, req)
	}
	if !hasIdx {
		idx = c.nextClientIndex
	}
	c.nextClientIndex = idx + 1

	transportHeader, ok := req.Header.Get(rtspmsg.HeaderTransport)
	if !ok {
		return c.respond(rtspmsg.StatusBadRequest, req)
	}
	t, ok := parseTransport(transportHeader)
	if !ok {
		return c.respond(rtspmsg.StatusBadRequest, req)
	}

	stream, ok := m.Stream(idx)
	if !ok {
		return c.respond(rtspmsg.StatusNotFound, req)
	}

	sub := &mount.Subscriber{ConnID: c.id}
	if t.interleaved {
		c.interleaved = true
		c.parser.InterleavedAllowed = true
		sub.Transport = mount.Transport{Interleaved: true, RTPChannel: t.rtpChan, RTCPChannel: t.rtcpChan}
		sub.Writer = &interleavedWriter{conn: c, rtpChan: t.rtpChan, rtcpChan: t.rtcpChan}
	} else {
		sender, ok := stream.UDPSender()
		if !ok {
			// A sender is attached only when the source's RECORD starts a
			// UDP listener for this stream (see conn_source.go). A stream
			// the source publishes interleaved never has one, so a UDP
			// client cannot be served from it.
			return c.respond(rtspmsg.StatusInternalServerError, req)
		}
		clientIP := remoteHost(c.netConn)
		sub.Transport = mount.Transport{ClientIP: clientIP, ClientRTP: t.clientRTPPort, ClientRTCP: t.clientRTCPPort}
		sub.Writer = rtpio.NewUDPFrameWriter(sender, clientIP, t.clientRTPPort, t.clientRTCPPort)
	}

	stream.Subscribe(sub)
	c.subscriptions[idx] = stream
	c.role = RoleClient
	c.clientMountPath = path
	c.clientMount = m
	c.ensureSession()
	c.state = StateReady

	resp := c.respond(rtspmsg.StatusOK, req)
	resp.WithHeader(rtspmsg.HeaderTransport, transportHeader)
	return resp
}

// handlePlay implements (Client,Ready) -> (Client,Playing).
func (c *Connection) handlePlay(req *rtspmsg.Request) *rtspmsg.Response {
	if c.role != RoleClient || c.state != StateReady {
		return c.respond(rtspmsg.StatusMethodNotValidInThisState, req)
	}
	for _, stream := range c.subscriptions {
		stream.SetPlaying(c.id, true)
	}
	c.state = StatePlaying
	resp := c.respond(rtspmsg.StatusOK, req)
	if r := c.clientMount.Range(); r != "" {
		resp.WithHeader(rtspmsg.HeaderRange, r)
	} else {
		resp.WithHeader(rtspmsg.HeaderRange, "npt=0.000-")
	}
	return resp
}

// handlePause implements (Client,Playing) -> (Client,Ready): suspend
// delivery, keep the subscriber registered.
func (c *Connection) handlePause(req *rtspmsg.Request) *rtspmsg.Response {
	if c.role != RoleClient || c.state != StatePlaying {
		return c.respond(rtspmsg.StatusMethodNotValidInThisState, req)
	}
	for _, stream := range c.subscriptions {
		stream.SetPlaying(c.id, false)
	}
	c.state = StateReady
	return c.respond(rtspmsg.StatusOK, req)
}
