package rtspmsg

import (
	"bufio"
	"encoding/binary"
	"io"
)

// interleavedSentinel is the magic byte (0x24, '$') that introduces an
// interleaved RTP/RTCP frame on the control socket, per RFC 2326 §10.12.
const interleavedSentinel = 0x24

// InterleavedFrame is an RTP/RTCP payload framed inside the control TCP
// socket: sentinel + channel + 2-byte big-endian length + payload.
type InterleavedFrame struct {
	Channel byte
	Payload []byte
}

// Message is either a Request or an InterleavedFrame, never both.
type Message struct {
	Request *Request
	Frame   *InterleavedFrame
}

// Parser yields a lazy sequence of Messages from a TCP socket, per spec
// §4.1's public contract. InterleavedAllowed must be toggled by the
// caller (the connection state machine) once interleaved mode is
// negotiated; until then, a leading 0x24 is a protocol violation.
type Parser struct {
	r                  *bufio.Reader
	InterleavedAllowed bool
}

// NewParser wraps r in its own buffered reader. Parser only reads;
// writes are the caller's concern.
func NewParser(r io.Reader) *Parser {
	return &Parser{r: bufio.NewReader(r)}
}

// Next reads the next Message. It returns a *rtspmsg.Error via errors.As
// for anything exceptional, including PeerClosed for a clean EOF between
// messages (not itself an error condition per spec §4.1).
func (p *Parser) Next() (Message, error) {
	first, err := p.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			return Message{}, PeerClosed()
		}
		return Message{}, PeerReset(err)
	}

	if first == interleavedSentinel {
		if !p.InterleavedAllowed {
			return Message{}, ProtocolViolation("interleaved frame received before interleaved mode was negotiated", nil)
		}
		frame, err := p.readInterleavedFrame()
		if err != nil {
			return Message{}, err
		}
		return Message{Frame: &frame}, nil
	}

	if err := p.r.UnreadByte(); err != nil {
		return Message{}, ProtocolViolation("unread byte failed", err)
	}
	req, err := ReadRequest(p.r)
	if err != nil {
		return Message{}, err
	}
	return Message{Request: &req}, nil
}

func (p *Parser) readInterleavedFrame() (InterleavedFrame, error) {
	channel, err := p.r.ReadByte()
	if err != nil {
		return InterleavedFrame{}, PeerReset(err)
	}

	lenBuf := make([]byte, 2)
	if _, err := io.ReadFull(p.r, lenBuf); err != nil {
		return InterleavedFrame{}, PeerReset(err)
	}
	length := binary.BigEndian.Uint16(lenBuf)

	payload := make([]byte, length)
	if _, err := io.ReadFull(p.r, payload); err != nil {
		return InterleavedFrame{}, PeerReset(err)
	}

	return InterleavedFrame{Channel: channel, Payload: payload}, nil
}

// EncodeInterleavedFrame serializes a frame for writing to a control
// socket: sentinel + channel + 2-byte length + payload.
func EncodeInterleavedFrame(channel byte, payload []byte) []byte {
	out := make([]byte, 0, 4+len(payload))
	out = append(out, interleavedSentinel, channel)
	lenBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBuf, uint16(len(payload)))
	out = append(out, lenBuf...)
	out = append(out, payload...)
	return out
}
