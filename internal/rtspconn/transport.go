package rtspconn

import (
	"regexp"
	"strconv"
)

var (
	interleavedRe = regexp.MustCompile(`interleaved=(\d+)-(\d+)`)
	clientPortRe  = regexp.MustCompile(`client_port=(\d+)-(\d+)`)
)

// parsedTransport is the subset of an RTSP Transport header this server
// acts on.
type parsedTransport struct {
	interleaved    bool
	rtpChan        byte
	rtcpChan       byte
	clientRTPPort  int
	clientRTCPPort int
	hasClientPorts bool
}

func parseTransport(header string) (parsedTransport, bool) {
	var t parsedTransport
	if m := interleavedRe.FindStringSubmatch(header); m != nil {
		a, err1 := strconv.Atoi(m[1])
		b, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil || a < 0 || a > 255 || b < 0 || b > 255 {
			return parsedTransport{}, false
		}
		t.interleaved = true
		t.rtpChan = byte(a)
		t.rtcpChan = byte(b)
		return t, true
	}
	if m := clientPortRe.FindStringSubmatch(header); m != nil {
		a, err1 := strconv.Atoi(m[1])
		b, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			return parsedTransport{}, false
		}
		t.hasClientPorts = true
		t.clientRTPPort = a
		t.clientRTCPPort = b
		return t, true
	}
	// UDP transport with no explicit client_port is still a valid,
	// server-chooses-everything request; treat as UDP with no ports.
	t.hasClientPorts = false
	return t, true
}
