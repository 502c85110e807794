package rtspmsg

import (
	"fmt"
	"strings"
)

// Status codes the server emits, per spec §6.
const (
	StatusOK                        = 200
	StatusBadRequest                = 400
	StatusUnauthorized              = 401
	StatusForbidden                 = 403
	StatusNotFound                  = 404
	StatusSessionNotFound           = 454
	StatusMethodNotValidInThisState = 455
	StatusInternalServerError       = 500
	StatusNotImplemented            = 501
)

var reasonPhrases = map[int]string{
	StatusOK:                       "OK",
	StatusBadRequest:                "Bad Request",
	StatusUnauthorized:              "Unauthorized",
	StatusForbidden:                 "Forbidden",
	StatusNotFound:                  "Not Found",
	StatusSessionNotFound:           "Session Not Found",
	StatusMethodNotValidInThisState: "Method Not Valid In This State",
	StatusInternalServerError:       "Internal Server Error",
	StatusNotImplemented:            "Not Implemented",
}

// ReasonPhrase returns the standard reason phrase for code, or "Unknown"
// if code isn't one of the ones this server emits.
func ReasonPhrase(code int) string {
	if p, ok := reasonPhrases[code]; ok {
		return p
	}
	return "Unknown"
}

// Response is an RTSP response. Every response must echo CSeq verbatim
// per spec §4.2; callers build one with NewResponse to make that
// unforgettable.
type Response struct {
	StatusCode int
	Header     Headers
	Body       []byte
}

// NewResponse builds a Response for statusCode, pre-populating the CSeq
// header from cseq (the originating request's CSeq value) so every
// response path echoes it without having to remember to.
func NewResponse(statusCode int, cseq string) *Response {
	h := make(Headers)
	if cseq != "" {
		h.Set(HeaderCSeq, cseq)
	}
	return &Response{StatusCode: statusCode, Header: h}
}

func (r *Response) WithSession(sessionID string) *Response {
	if sessionID != "" {
		r.Header.Set(HeaderSession, sessionID)
	}
	return r
}

func (r *Response) WithHeader(name, value string) *Response {
	r.Header.Set(name, value)
	return r
}

func (r *Response) WithBody(body []byte) *Response {
	r.Body = body
	r.Header.Set(HeaderContentLength, fmt.Sprintf("%d", len(body)))
	return r
}

func (r *Response) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d %s\r\n", protocolVersion, r.StatusCode, ReasonPhrase(r.StatusCode))
	for k, v := range r.Header {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}
	b.WriteString("\r\n")
	b.Write(r.Body)
	return b.String()
}

func (r *Response) Bytes() []byte {
	return []byte(r.String())
}
