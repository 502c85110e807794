package mount

import (
	"strconv"
	"strings"
)

const streamIDSegment = "/streamid="

// SplitStreamPath separates a SETUP request URI's trailing
// "/streamid=<n>" segment (spec §8 scenario S1) from the mount path it
// is relative to. If no such segment is present, ok is false and path is
// the normalized whole URI — some SDPs address a single-stream mount
// directly without a streamid suffix.
func SplitStreamPath(raw string) (path string, index int, ok bool) {
	normalized := NormalizePath(raw)
	i := strings.LastIndex(normalized, streamIDSegment)
	if i < 0 {
		return normalized, 0, false
	}
	idxStr := normalized[i+len(streamIDSegment):]
	n, err := strconv.Atoi(idxStr)
	if err != nil {
		return normalized, 0, false
	}
	return normalized[:i], n, true
}
