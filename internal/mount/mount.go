package mount

import "sync"

// Mount holds one published SDP session and its numbered sub-streams, per
// spec §3.
type Mount struct {
	Path string

	mu         sync.RWMutex
	sdp        []byte
	streams    map[int]*Stream
	mounted    bool
	sourceHost string
	sourceConn string // weak reference: the owning Source connection's ID
	rangeVal   string
}

// NewMount creates an unmounted Mount for path with the given SDP body
// (verbatim, per spec §6's "passed through verbatim" contract).
func NewMount(path string, sdp []byte) *Mount {
	return &Mount{
		Path:    path,
		sdp:     sdp,
		streams: make(map[int]*Stream),
	}
}

// SDP returns the verbatim SDP body last set by ANNOUNCE, satisfying
// invariant 5 (ANNOUNCE/DESCRIBE round trip).
func (m *Mount) SDP() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sdp
}

// Mounted reports whether a Source has successfully RECORDed.
func (m *Mount) Mounted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mounted
}

// SourceConn returns the connection ID of the owning Source, or "" if
// none.
func (m *Mount) SourceConn() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sourceConn
}

// MarkRecording transitions the Mount to mounted=true and records the
// owning Source's connection ID and remote host, per spec §4.2's RECORD
// transition. It is rejected if another Source already owns the Mount,
// enforcing invariant 2 (at most one Source per Mount).
func (m *Mount) MarkRecording(connID, sourceHost string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mounted && m.sourceConn != connID {
		return false
	}
	m.mounted = true
	m.sourceConn = connID
	m.sourceHost = sourceHost
	return true
}

// Unmount clears mounted state and the source back-reference. The
// registry calls this atomically with removing the path entry so no
// lookup can observe a mounted=true Mount with no owning connection.
func (m *Mount) Unmount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mounted = false
	m.sourceConn = ""
	m.sourceHost = ""
}

// StreamOrCreate returns the Stream for index, creating it on first
// SETUP for that index (spec §3's Stream lifecycle).
func (m *Mount) StreamOrCreate(index int) *Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streams[index]
	if !ok {
		s = NewStream(index)
		m.streams[index] = s
	}
	return s
}

// Stream returns the Stream for index if it has been created.
func (m *Mount) Stream(index int) (*Stream, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.streams[index]
	return s, ok
}

// Streams returns a snapshot of all streams, in no particular order.
func (m *Mount) Streams() []*Stream {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Stream, 0, len(m.streams))
	for _, s := range m.streams {
		out = append(out, s)
	}
	return out
}

// StreamCount reports how many m= lines the SDP declared. ANNOUNCE uses
// it to reject an SDP that declares no streams; port pairs are allocated
// per stream at SETUP, not from this count.
func (m *Mount) StreamCount() int {
	return countMediaLines(m.SDP())
}

func countMediaLines(sdp []byte) int {
	count := 0
	line := make([]byte, 0, 64)
	flush := func() {
		if len(line) >= 2 && line[0] == 'm' && line[1] == '=' {
			count++
		}
		line = line[:0]
	}
	for _, b := range sdp {
		if b == '\n' {
			flush()
			continue
		}
		if b == '\r' {
			continue
		}
		line = append(line, b)
	}
	flush()
	return count
}

// SetRange records the Range header value negotiated at PLAY, if any.
func (m *Mount) SetRange(r string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rangeVal = r
}

// Range returns the last negotiated Range value.
func (m *Mount) Range() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rangeVal
}
