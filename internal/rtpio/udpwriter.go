package rtpio

import (
	"net"

	"github.com/wangyl/rtspd/internal/mount"
)

// UDPFrameWriter delivers RTP/RTCP payloads to one client's negotiated
// UDP destination through a Stream's attached mount.UDPSender — per spec
// §4.4, "UDP subscribers receive the datagram unmodified on their
// negotiated destination port."
type UDPFrameWriter struct {
	sender   mount.UDPSender
	dest     *net.UDPAddr
	destRTCP *net.UDPAddr
}

// NewUDPFrameWriter builds a writer that sends through sender to
// (clientIP, clientRTPPort) / (clientIP, clientRTCPPort).
func NewUDPFrameWriter(sender mount.UDPSender, clientIP string, clientRTPPort, clientRTCPPort int) *UDPFrameWriter {
	ip := net.ParseIP(clientIP)
	return &UDPFrameWriter{
		sender:   sender,
		dest:     &net.UDPAddr{IP: ip, Port: clientRTPPort},
		destRTCP: &net.UDPAddr{IP: ip, Port: clientRTCPPort},
	}
}

func (w *UDPFrameWriter) WriteRTP(payload []byte) error {
	return w.sender.SendRTP(w.dest, payload)
}

func (w *UDPFrameWriter) WriteRTCP(payload []byte) error {
	return w.sender.SendRTCP(w.destRTCP, payload)
}
