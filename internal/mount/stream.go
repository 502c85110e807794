package mount

import "sync"

// Transport describes where a Subscriber's RTP/RTCP payloads go.
type Transport struct {
	// UDP fields, valid when Interleaved is false.
	ClientIP   string
	ClientRTP  int
	ClientRTCP int

	// Interleaved fields, valid when Interleaved is true.
	Interleaved bool
	RTPChannel  byte
	RTCPChannel byte
}

// FrameWriter is the minimal surface a Subscriber's owning connection
// exposes so the Stream can deliver a payload without knowing whether
// the transport is UDP or interleaved TCP. Implementations must be safe
// to call concurrently with the owning connection's own writes, since a
// broadcast can race a response write on an interleaved client socket.
type FrameWriter interface {
	// WriteRTP delivers payload for the stream index this Subscriber is
	// attached to. A write failure marks the subscriber dead.
	WriteRTP(payload []byte) error
	// WriteRTCP is the RTCP-channel counterpart of WriteRTP.
	WriteRTCP(payload []byte) error
}

// Subscriber is one client attached to a Stream. It holds only a weak
// reference (the connID) to its owning connection; the connection hands
// in its own FrameWriter and is the sole owner of whether that writer is
// still valid — a dead connection simply stops being findable, and a
// failed write evicts the Subscriber at the next broadcast pass, per
// spec §3.
type Subscriber struct {
	ConnID    string
	Transport Transport
	Writer    FrameWriter
	// Playing gates delivery: a subscriber only receives frames while its
	// owning connection is in the Playing state (spec §3).
	Playing bool
}

// Stream is one numbered sub-stream (m= line) of a Mount.
type Stream struct {
	Index        int
	RTPPortStart int // even; 0 if interleaved-only

	mu          sync.Mutex
	subscribers map[string]*Subscriber
	sender      UDPSender
}

// NewStream constructs an empty Stream for the given index.
func NewStream(index int) *Stream {
	return &Stream{Index: index, subscribers: make(map[string]*Subscriber)}
}

// Subscribe adds or replaces the Subscriber for connID.
func (s *Stream) Subscribe(sub *Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[sub.ConnID] = sub
}

// Unsubscribe removes connID's subscriber, if any.
func (s *Stream) Unsubscribe(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, connID)
}

// SetPlaying toggles whether connID's subscriber currently receives
// frames, implementing the PLAY/PAUSE transitions of spec §4.2.
func (s *Stream) SetPlaying(connID string, playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subscribers[connID]; ok {
		sub.Playing = playing
	}
}

// snapshot returns the current subscriber list under the lock, per
// spec §5: broadcasts take a snapshot under the lock and write outside
// it, so one slow subscriber never blocks delivery to the others.
func (s *Stream) snapshot() []*Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		out = append(out, sub)
	}
	return out
}

// BroadcastRTP fans payload out to every playing subscriber, in the
// order the listener received datagrams from the source, satisfying
// invariant 4 (per-subscriber FIFO). Subscribers whose write fails are
// evicted after the pass; one subscriber's failure never aborts delivery
// to the others (spec §4.4).
func (s *Stream) BroadcastRTP(payload []byte) {
	s.broadcast(payload, (FrameWriter).WriteRTP)
}

// BroadcastRTCP is BroadcastRTP's RTCP-channel counterpart.
func (s *Stream) BroadcastRTCP(payload []byte) {
	s.broadcast(payload, (FrameWriter).WriteRTCP)
}

func (s *Stream) broadcast(payload []byte, write func(FrameWriter, []byte) error) {
	subs := s.snapshot()
	var dead []string
	for _, sub := range subs {
		if !sub.Playing {
			continue
		}
		if err := write(sub.Writer, payload); err != nil {
			dead = append(dead, sub.ConnID)
		}
	}
	if len(dead) == 0 {
		return
	}
	s.mu.Lock()
	for _, id := range dead {
		delete(s.subscribers, id)
	}
	s.mu.Unlock()
}

// SubscriberCount reports the current number of attached subscribers,
// used by tests and diagnostics.
func (s *Stream) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}
