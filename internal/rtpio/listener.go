package rtpio

import (
	"net"
	"sync"

	"github.com/pion/rtp"

	"github.com/wangyl/rtspd/internal/logging"
	"github.com/wangyl/rtspd/internal/mount"
)

// maxDatagramSize is large enough for any RTP/RTCP payload this server
// forwards; RTP over UDP is limited by the path MTU well below this.
const maxDatagramSize = 65535

// Listener owns a bound RTP/RTCP UDP socket pair for one Mount's Stream
// and fans received datagrams out to that Stream's subscribers, per spec
// §4.4. It exists only in non-interleaved mode (spec §3).
type Listener struct {
	stream   *mount.Stream
	rtpConn  *net.UDPConn
	rtcpConn *net.UDPConn
	log      logging.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewListener wraps an already-bound RTP/RTCP pair (from Allocator.Allocate)
// and starts its receive loops. Call Close to stop them and release the
// sockets.
func NewListener(stream *mount.Stream, rtpConn, rtcpConn *net.UDPConn, log logging.Logger) *Listener {
	if log == nil {
		log = logging.Nop{}
	}
	l := &Listener{
		stream:   stream,
		rtpConn:  rtpConn,
		rtcpConn: rtcpConn,
		log:      log,
		done:     make(chan struct{}),
	}
	stream.SetUDPSender(l)
	go l.receiveLoop(l.rtpConn, l.stream.BroadcastRTP, "rtp")
	go l.receiveLoop(l.rtcpConn, l.stream.BroadcastRTCP, "rtcp")
	return l
}

// SendRTP implements mount.UDPSender, letting UDP Subscribers send from
// the same socket this Listener receives on.
func (l *Listener) SendRTP(dst *net.UDPAddr, payload []byte) error {
	_, err := l.rtpConn.WriteToUDP(payload, dst)
	return err
}

// SendRTCP is SendRTP's RTCP-channel counterpart.
func (l *Listener) SendRTCP(dst *net.UDPAddr, payload []byte) error {
	_, err := l.rtcpConn.WriteToUDP(payload, dst)
	return err
}

func (l *Listener) receiveLoop(conn *net.UDPConn, broadcast func([]byte), kind string) {
	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-l.done:
				return
			default:
				l.log.Warnf("rtpio: %s read error on stream %d: %v", kind, l.stream.Index, err)
				return
			}
		}
		payload := append([]byte(nil), buf[:n]...)
		if kind == "rtp" {
			l.traceDecode(payload)
		}
		broadcast(payload)
	}
}

// traceDecode decodes each RTP datagram's header for a diagnostic
// trace-level log line. It never affects forwarding: payloads are still broadcast
// byte-for-byte per spec §6, and a decode failure is swallowed. See
// SPEC_FULL.md §4.4.
func (l *Listener) traceDecode(payload []byte) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(payload); err != nil {
		return
	}
	l.log.Tracef("rtpio: stream %d rtp seq=%d ts=%d ssrc=%d marker=%v",
		l.stream.Index, pkt.SequenceNumber, pkt.Timestamp, pkt.SSRC, pkt.Marker)
}

// Close stops the receive loops and closes both sockets. It is
// idempotent, satisfying the scoped-release contract of spec §5.
func (l *Listener) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
		l.rtpConn.Close()
		l.rtcpConn.Close()
	})
}
