// Package mount implements the mount-point registry that glues RTSP
// sources to subscribed clients, per spec §3 and §4.5.
package mount

import "strings"

// NormalizePath implements spec §4.5's URL path normalization: strips the
// rtsp://host[:port] prefix if present, collapses "//" to "/", and
// removes a trailing "/" except on the root.
func NormalizePath(raw string) string {
	p := raw

	if idx := strings.Index(p, "://"); idx >= 0 {
		rest := p[idx+3:]
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			p = rest[slash:]
		} else {
			p = "/"
		}
	}

	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}

	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}

	return p
}
