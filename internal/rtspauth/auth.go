// Package rtspauth implements the optional Basic/Digest challenge hooks
// spec §4.8 allows, without pulling in any real authorization policy:
// per spec §1's Non-goals, authentication beyond these hooks is out of
// scope. Every Challenger here is off by default; enabling one is a
// single constructor argument to the server.
package rtspauth

import "github.com/wangyl/rtspd/internal/rtspmsg"

// Challenger decides whether a request is authorized. It returns the
// value to place in a 401 response's WWW-Authenticate header when it is
// not.
type Challenger interface {
	Challenge(req *rtspmsg.Request) (ok bool, wwwAuthenticate string)
}

// NoAuth always authorizes, matching the Non-goal that real
// authentication is out of scope. It is the default Challenger.
type NoAuth struct{}

func (NoAuth) Challenge(*rtspmsg.Request) (bool, string) { return true, "" }
