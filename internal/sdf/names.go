package sdf

import (
	"fmt"
	"strconv"
	"strings"
)

const escapePrefix = "__esc_"

// IsValidIdentifier reports whether name can be used as a prim name unchanged.
func IsValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// EscapeName maps a scene cache location name onto a valid prim name.
// Valid identifiers pass through unchanged; anything else is hex-escaped behind
// a marker prefix so UnescapeName can restore it.
func EscapeName(name string) string {
	if IsValidIdentifier(name) && !strings.HasPrefix(name, escapePrefix) {
		return name
	}
	var b strings.Builder
	b.WriteString(escapePrefix)
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "_%02X", c)
	}
	return b.String()
}

// UnescapeName reverses EscapeName. Names without the marker are returned as is.
func UnescapeName(name string) string {
	if !strings.HasPrefix(name, escapePrefix) {
		return name
	}
	body := name[len(escapePrefix):]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '_' && i+2 < len(body) {
			if v, err := strconv.ParseUint(body[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(body[i])
	}
	return b.String()
}
