package rtspmsg

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequestBasic(t *testing.T) {
	raw := "OPTIONS rtsp://host/live RTSP/1.0\r\nCSeq: 1\r\n\r\n"
	req, err := ReadRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	assert.Equal(t, OPTIONS, req.Method)
	assert.Equal(t, "rtsp://host/live", req.URI)
	assert.Equal(t, "1", req.CSeq())
}

func TestReadRequestMissingCSeqIsProtocolViolation(t *testing.T) {
	raw := "OPTIONS rtsp://host/live RTSP/1.0\r\n\r\n"
	_, err := ReadRequest(bufio.NewReader(strings.NewReader(raw)))
	require.Error(t, err)
	assert.True(t, Is(err, KindProtocolViolation))
}

func TestReadRequestUnsupportedVersion(t *testing.T) {
	raw := "OPTIONS rtsp://host/live RTSP/2.0\r\nCSeq: 1\r\n\r\n"
	_, err := ReadRequest(bufio.NewReader(strings.NewReader(raw)))
	require.Error(t, err)
	assert.True(t, Is(err, KindUnsupportedVersion))
}

func TestReadRequestWithBody(t *testing.T) {
	body := "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\n"
	raw := "ANNOUNCE rtsp://host/live RTSP/1.0\r\nCSeq: 1\r\nContent-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body
	req, err := ReadRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	assert.Equal(t, body, string(req.Body))
}

func TestHeadersCaseInsensitive(t *testing.T) {
	raw := "OPTIONS rtsp://host/live RTSP/1.0\r\ncseq: 9\r\nCONTENT-LENGTH: 0\r\n\r\n"
	req, err := ReadRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	assert.Equal(t, "9", req.CSeq())
	v, ok := req.Header.Get("content-length")
	require.True(t, ok)
	assert.Equal(t, "0", v)
}

func TestResponseEchoesCSeq(t *testing.T) {
	resp := NewResponse(StatusOK, "42")
	assert.Contains(t, resp.String(), "Cseq: 42")
	assert.Contains(t, resp.String(), "200 OK")
}

func TestParserDetectsInterleavedFrame(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}
	buf := bytes.NewBuffer(EncodeInterleavedFrame(0, payload))
	p := NewParser(buf)
	p.InterleavedAllowed = true

	msg, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, msg.Frame)
	assert.Equal(t, byte(0), msg.Frame.Channel)
	assert.Equal(t, payload, msg.Frame.Payload)
}

func TestParserRejectsInterleavedFrameWhenNotNegotiated(t *testing.T) {
	buf := bytes.NewBuffer(EncodeInterleavedFrame(0, []byte{0x01}))
	p := NewParser(buf)

	_, err := p.Next()
	require.Error(t, err)
	assert.True(t, Is(err, KindProtocolViolation))
}

func TestParserReadsRequestAfterFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(EncodeInterleavedFrame(2, []byte{0x01, 0x02}))
	buf.WriteString("OPTIONS rtsp://host/live RTSP/1.0\r\nCSeq: 1\r\n\r\n")

	p := NewParser(&buf)
	p.InterleavedAllowed = true

	msg1, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, msg1.Frame)

	msg2, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, msg2.Request)
	assert.Equal(t, OPTIONS, msg2.Request.Method)
}

func TestParserCleanEOFIsPeerClosed(t *testing.T) {
	p := NewParser(strings.NewReader(""))
	_, err := p.Next()
	require.Error(t, err)
	assert.True(t, Is(err, KindPeerClosed))
}
