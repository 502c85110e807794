package rtspauth

import (
	"encoding/base64"

	"github.com/wangyl/rtspd/internal/rtspmsg"
)

// BasicChallenger implements RFC 7617 Basic authentication against a
// fixed username/password, grounded on the pack's cesbo-go-rtsp
// auth_basic.go. It is never wired in by default.
type BasicChallenger struct {
	Realm    string
	Username string
	Password string
}

func (b *BasicChallenger) Challenge(req *rtspmsg.Request) (bool, string) {
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(b.Username+":"+b.Password))
	got, ok := req.Header.Get(rtspmsg.HeaderAuthorization)
	if ok && got == want {
		return true, ""
	}
	return false, `Basic realm="` + b.Realm + `"`
}
