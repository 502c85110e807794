package mount

import "net"

// UDPSender lets a Stream's UDP subscribers send through the same socket
// its RTP/RTCP listener already has bound, without this package
// depending on whatever package owns that listener (internal/rtpio),
// which itself depends on this package for the Stream type.
type UDPSender interface {
	SendRTP(dst *net.UDPAddr, payload []byte) error
	SendRTCP(dst *net.UDPAddr, payload []byte) error
}

// SetUDPSender attaches the socket a listener bound for this Stream, so
// SETUP can hand UDP subscribers a way to receive without opening a
// socket of their own.
func (s *Stream) SetUDPSender(sender UDPSender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = sender
}

// UDPSender returns the Stream's attached sender, if any.
func (s *Stream) UDPSender() (UDPSender, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sender, s.sender != nil
}
