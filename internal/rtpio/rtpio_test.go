package rtpio

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangyl/rtspd/internal/logging"
	"github.com/wangyl/rtspd/internal/mount"
)

func TestAllocatorReturnsEvenOddPairs(t *testing.T) {
	a := NewAllocator(30000, 30020)
	rtpConn, rtcpConn, port, err := a.Allocate("127.0.0.1")
	require.NoError(t, err)
	defer rtpConn.Close()
	defer rtcpConn.Close()

	assert.Equal(t, 0, port%2)
	assert.Equal(t, port+1, rtcpConn.LocalAddr().(*net.UDPAddr).Port)
	assert.Equal(t, port, rtpConn.LocalAddr().(*net.UDPAddr).Port)
}

func TestAllocatorAdvancesAndWraps(t *testing.T) {
	a := NewAllocator(30100, 30104)
	seen := map[int]bool{}
	for i := 0; i < 3; i++ {
		rtpConn, rtcpConn, port, err := a.Allocate("127.0.0.1")
		require.NoError(t, err)
		assert.False(t, seen[port], "port %d reused while still held", port)
		seen[port] = true
		rtpConn.Close()
		rtcpConn.Close()
	}

	rtpConn, rtcpConn, port, err := a.Allocate("127.0.0.1")
	require.NoError(t, err)
	defer rtpConn.Close()
	defer rtcpConn.Close()
	assert.Equal(t, 30100, port, "cursor did not wrap back to min")
}

// TestAllocatorExhaustionReturnsTypedError covers scenario S7: once every
// port in a held range is busy, Allocate gives up after maxBindRetries
// attempts with a typed ErrPortRangeExhausted rather than hanging or
// panicking.
func TestAllocatorExhaustionReturnsTypedError(t *testing.T) {
	a := NewAllocator(30300, 30302) // exactly two bindable pairs: 30300-30301, 30302-30303

	for i := 0; i < 2; i++ {
		rtpConn, rtcpConn, _, err := a.Allocate("127.0.0.1")
		require.NoError(t, err)
		defer rtpConn.Close()
		defer rtcpConn.Close()
	}

	_, _, _, err := a.Allocate("127.0.0.1")
	require.Error(t, err)
	var exhausted ErrPortRangeExhausted
	assert.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 30300, exhausted.Min)
	assert.Equal(t, 30302, exhausted.Max)
}

func TestListenerBroadcastsReceivedDatagrams(t *testing.T) {
	a := NewAllocator(30200, 30210)
	rtpConn, rtcpConn, _, err := a.Allocate("127.0.0.1")
	require.NoError(t, err)

	stream := mount.NewStream(0)
	l := NewListener(stream, rtpConn, rtcpConn, logging.Nop{})
	defer l.Close()

	recvd := make(chan []byte, 1)
	stream.Subscribe(&mount.Subscriber{
		ConnID:  "c1",
		Playing: true,
		Writer:  &captureWriter{ch: recvd},
	})

	sender, err := net.DialUDP("udp", nil, rtpConn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer sender.Close()

	payload := []byte{0xAA, 0xBB, 0xCC}
	_, err = sender.Write(payload)
	require.NoError(t, err)

	select {
	case got := <-recvd:
		assert.Equal(t, payload, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

type captureWriter struct {
	ch chan []byte
}

func (c *captureWriter) WriteRTP(p []byte) error {
	cp := append([]byte(nil), p...)
	c.ch <- cp
	return nil
}

func (c *captureWriter) WriteRTCP(p []byte) error { return c.WriteRTP(p) }
