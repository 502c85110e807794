package rtspconn

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangyl/rtspd/internal/logging"
	"github.com/wangyl/rtspd/internal/mount"
	"github.com/wangyl/rtspd/internal/rtpio"
	"github.com/wangyl/rtspd/internal/sessionid"
)

// harness drives a Connection over an in-memory socket pair, standing in
// for a real accepted TCP connection the way rtspserver would hand it to
// Connection.Serve.
type harness struct {
	t        *testing.T
	client   net.Conn
	r        *bufio.Reader
	registry *mount.Registry
	deps     Deps
	cseq     int
}

func newHarness(t *testing.T, registry *mount.Registry) *harness {
	t.Helper()
	client, server := net.Pipe()

	sessions, err := sessionid.NewGenerator(1)
	require.NoError(t, err)

	if registry == nil {
		registry = mount.NewRegistry()
	}
	deps := Deps{
		Registry:  registry,
		Allocator: rtpio.NewAllocator(31000, 31200),
		SessionID: sessions,
		Logger:    logging.Nop{},
		BindHost:  "127.0.0.1",
	}

	h := &harness{t: t, client: client, r: bufio.NewReader(client), registry: registry, deps: deps}

	c := New(fmt.Sprintf("test-%p", server), server, deps)
	go c.Serve()

	return h
}

type testResponse struct {
	code    int
	headers map[string]string
	body    []byte
}

func (h *harness) send(method, uri string, headers map[string]string, body []byte) testResponse {
	h.t.Helper()
	h.cseq++

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s RTSP/1.0\r\n", method, uri)
	fmt.Fprintf(&b, "CSeq: %d\r\n", h.cseq)
	for k, v := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}
	if len(body) > 0 {
		fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	}
	b.WriteString("\r\n")
	b.Write(body)

	_, err := h.client.Write([]byte(b.String()))
	require.NoError(h.t, err)

	return h.readResponse()
}

func (h *harness) readResponse() testResponse {
	h.t.Helper()
	statusLine, err := h.r.ReadString('\n')
	require.NoError(h.t, err)
	parts := strings.SplitN(strings.TrimRight(statusLine, "\r\n"), " ", 3)
	require.Len(h.t, parts, 3, "malformed status line: %q", statusLine)
	code, err := strconv.Atoi(parts[1])
	require.NoError(h.t, err)

	headers := map[string]string{}
	for {
		line, err := h.r.ReadString('\n')
		require.NoError(h.t, err)
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		require.True(h.t, ok, "malformed header: %q", line)
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	var body []byte
	if cl, ok := headers["Content-Length"]; ok {
		n, err := strconv.Atoi(cl)
		require.NoError(h.t, err)
		body = make([]byte, n)
		_, err = readFull(h.r, body)
		require.NoError(h.t, err)
	}

	return testResponse{code: code, headers: headers, body: body}
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

const testSDP = "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=stream\r\nm=video 0 RTP/AVP 96\r\n"

// TestAnnounceSetupRecordDescribe covers scenario S1's control-plane half:
// publish succeeds and a second connection can then DESCRIBE it.
func TestAnnounceSetupRecordDescribe(t *testing.T) {
	source := newHarness(t, nil)

	resp := source.send("ANNOUNCE", "rtsp://localhost/live", nil, []byte(testSDP))
	assert.Equal(t, 200, resp.code)

	resp = source.send("SETUP", "rtsp://localhost/live/streamid=0", map[string]string{
		"Transport": "RTP/AVP;unicast;client_port=6000-6001",
	}, nil)
	assert.Equal(t, 200, resp.code)
	assert.Contains(t, resp.headers["Transport"], "server_port=")

	resp = source.send("RECORD", "rtsp://localhost/live", nil, nil)
	assert.Equal(t, 200, resp.code)

	client := newHarness(t, source.registry)
	resp = client.send("DESCRIBE", "rtsp://localhost/live", nil, nil)
	assert.Equal(t, 200, resp.code)
	assert.Equal(t, testSDP, string(resp.body))
}

// TestDuplicateAnnounceRejected covers scenario S2: a second ANNOUNCE for a
// live path is rejected with 403 even before the first RECORDs.
func TestDuplicateAnnounceRejected(t *testing.T) {
	registry := mount.NewRegistry()

	first := newHarness(t, registry)
	resp := first.send("ANNOUNCE", "rtsp://localhost/dup", nil, []byte(testSDP))
	assert.Equal(t, 200, resp.code)

	second := newHarness(t, registry)
	resp = second.send("ANNOUNCE", "rtsp://localhost/dup", nil, []byte(testSDP))
	assert.Equal(t, 403, resp.code)
}

// TestSetupRejectedOnceRecording covers scenario S3: once a Mount is
// Recording, a further Source SETUP for it is invalid in this state.
func TestSetupRejectedOnceRecording(t *testing.T) {
	source := newHarness(t, nil)
	resp := source.send("ANNOUNCE", "rtsp://localhost/live", nil, []byte(testSDP))
	require.Equal(t, 200, resp.code)
	resp = source.send("SETUP", "rtsp://localhost/live/streamid=0", map[string]string{
		"Transport": "RTP/AVP;unicast;client_port=6000-6001",
	}, nil)
	require.Equal(t, 200, resp.code)
	resp = source.send("RECORD", "rtsp://localhost/live", nil, nil)
	require.Equal(t, 200, resp.code)

	resp = source.send("SETUP", "rtsp://localhost/live/streamid=1", map[string]string{
		"Transport": "RTP/AVP;unicast;client_port=6002-6003",
	}, nil)
	assert.Equal(t, 455, resp.code)
}

// TestSourceDisconnectUnmounts covers scenario S5: a Source's connection
// dropping tears down its Mount, so a subsequent DESCRIBE 404s.
func TestSourceDisconnectUnmounts(t *testing.T) {
	registry := mount.NewRegistry()
	source := newHarness(t, registry)
	resp := source.send("ANNOUNCE", "rtsp://localhost/live", nil, []byte(testSDP))
	require.Equal(t, 200, resp.code)
	resp = source.send("SETUP", "rtsp://localhost/live/streamid=0", map[string]string{
		"Transport": "RTP/AVP;unicast;client_port=6000-6001",
	}, nil)
	require.Equal(t, 200, resp.code)
	resp = source.send("RECORD", "rtsp://localhost/live", nil, nil)
	require.Equal(t, 200, resp.code)

	source.client.Close()
	// Give the server goroutine's read loop time to observe the close and
	// run cleanup.
	time.Sleep(100 * time.Millisecond)

	client := newHarness(t, registry)
	resp = client.send("DESCRIBE", "rtsp://localhost/live", nil, nil)
	assert.Equal(t, 404, resp.code)
}

// TestAnnounceWithNoMediaLinesRejected covers the SDP validation
// StreamCount performs: an SDP with no m= lines describes no streams a
// SETUP could ever attach to, so ANNOUNCE rejects it with 400 and frees
// the path for a subsequent, well-formed ANNOUNCE.
func TestAnnounceWithNoMediaLinesRejected(t *testing.T) {
	registry := mount.NewRegistry()
	source := newHarness(t, registry)

	resp := source.send("ANNOUNCE", "rtsp://localhost/live", nil,
		[]byte("v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=stream\r\n"))
	assert.Equal(t, 400, resp.code)

	retry := newHarness(t, registry)
	resp = retry.send("ANNOUNCE", "rtsp://localhost/live", nil, []byte(testSDP))
	assert.Equal(t, 200, resp.code)
}

// TestUnknownMethodNotImplemented covers scenario S6.
func TestUnknownMethodNotImplemented(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.send("FROBNICATE", "rtsp://localhost/live", nil, nil)
	assert.Equal(t, 501, resp.code)
}

// TestMissingCSeqIsBadRequestAndConnectionStaysOpen covers the Open
// Question 3 resolution together with spec §7's propagation policy: a
// request with no CSeq header is rejected with 400, but — since this is
// a protocol-level error and not a PeerReset — the connection is kept
// open and a subsequent well-formed request on it still succeeds.
func TestMissingCSeqIsBadRequestAndConnectionStaysOpen(t *testing.T) {
	client, server := net.Pipe()
	sessions, err := sessionid.NewGenerator(1)
	require.NoError(t, err)
	deps := Deps{
		Registry:  mount.NewRegistry(),
		Allocator: rtpio.NewAllocator(31300, 31310),
		SessionID: sessions,
		Logger:    logging.Nop{},
		BindHost:  "127.0.0.1",
	}
	c := New("test-no-cseq", server, deps)
	go c.Serve()

	r := bufio.NewReader(client)

	_, err = client.Write([]byte("OPTIONS rtsp://localhost/live RTSP/1.0\r\n\r\n"))
	require.NoError(t, err)
	statusLine, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, statusLine, "400")
	for { // drain headers up to the blank line terminating the response
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimRight(line, "\r\n") == "" {
			break
		}
	}

	_, err = client.Write([]byte("OPTIONS rtsp://localhost/live RTSP/1.0\r\nCSeq: 1\r\n\r\n"))
	require.NoError(t, err)
	statusLine, err = r.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, statusLine, "200")
}
