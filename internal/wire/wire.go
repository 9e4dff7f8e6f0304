// Package wire encodes chat messages as printable text followed by a
// terminating null byte. There is no length prefix: a receiver treats
// whatever one read returned as a buffer of null-terminated strings.
package wire

import "bytes"

// Terminator ends every message on the wire.
const Terminator byte = 0

// Encode returns msg followed by the terminator.
func Encode(msg string) []byte {
	b := make([]byte, 0, len(msg)+1)
	b = append(b, msg...)
	return append(b, Terminator)
}

// Text returns the printable string held in buf: everything before the
// first terminator, or all of buf when none is present.
func Text(buf []byte) string {
	if i := bytes.IndexByte(buf, Terminator); i >= 0 {
		return string(buf[:i])
	}
	return string(buf)
}

// Split returns every non-empty string in buf. A single read may carry
// several messages when the sender wrote them back to back.
func Split(buf []byte) []string {
	var out []string
	for len(buf) > 0 {
		i := bytes.IndexByte(buf, Terminator)
		if i < 0 {
			out = append(out, string(buf))
			break
		}
		if i > 0 {
			out = append(out, string(buf[:i]))
		}
		buf = buf[i+1:]
	}
	return out
}

// DefaultPort is the well-known port the server binds and clients dial.
const DefaultPort = 5555
