package signing

import "strings"

const upperHex = "0123456789ABCDEF"

// EscapePath percent-encodes every segment of an object key, keeping the
// slashes between segments. Only A-Z a-z 0-9 - _ . ~ are left as is.
func EscapePath(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = escapeSegment(segment)
	}
	return strings.Join(segments, "/")
}

func escapeSegment(segment string) string {
	clean := true
	for i := 0; i < len(segment); i++ {
		if !unreserved(segment[i]) {
			clean = false
			break
		}
	}
	if clean {
		return segment
	}
	var b strings.Builder
	b.Grow(len(segment) * 3)
	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0F])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '~':
		return true
	default:
		return false
	}
}
