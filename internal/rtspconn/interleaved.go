package rtspconn

import "github.com/wangyl/rtspd/internal/rtspmsg"

// interleavedWriter implements mount.FrameWriter for a Client Connection
// that negotiated interleaved=a-b at SETUP: payloads are framed per RFC
// 2326 §10.12 and written to the same control socket the RTSP responses
// go out on, serialized through the Connection's writeMu so a broadcast
// can never interleave its bytes with an in-flight response (spec §4.4).
type interleavedWriter struct {
	conn              *Connection
	rtpChan, rtcpChan byte
}

func (w *interleavedWriter) WriteRTP(payload []byte) error {
	return w.write(w.rtpChan, payload)
}

func (w *interleavedWriter) WriteRTCP(payload []byte) error {
	return w.write(w.rtcpChan, payload)
}

func (w *interleavedWriter) write(channel byte, payload []byte) error {
	w.conn.writeMu.Lock()
	defer w.conn.writeMu.Unlock()
	_, err := w.conn.netConn.Write(rtspmsg.EncodeInterleavedFrame(channel, payload))
	return err
}
