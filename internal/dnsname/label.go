// Package dnsname derives DNS names from libvirt guest display names.
package dnsname

import (
	"errors"
	"strings"
)

// ErrInvalidLabel is returned when no valid DNS label can be derived
// from a display name.
var ErrInvalidLabel = errors.New("dnsname: no valid label can be derived")

const maxLabelLen = 63

// Normalize turns an arbitrary guest display name into a valid single
// DNS label: lowercase, underscores become hyphens, every other
// character outside [a-z0-9-] is dropped, hyphen runs collapse to one,
// leading/trailing hyphens are trimmed and the result is capped at 63
// characters. Normalize is idempotent on its own output.
func Normalize(displayName string) (string, error) {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(displayName) {
		switch {
		case r == '_' || r == '-':
			if !hyphen {
				b.WriteByte('-')
				hyphen = true
			}
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			hyphen = false
		}
	}

	label := strings.Trim(b.String(), "-")
	if len(label) > maxLabelLen {
		// Truncation may expose a trailing hyphen run.
		label = strings.TrimRight(label[:maxLabelLen], "-")
	}
	if label == "" {
		return "", ErrInvalidLabel
	}
	return label, nil
}

// Fqdn joins a label with a zone into a fully qualified,
// trailing-dot-terminated domain name. The zone may be given with or
// without its trailing dot.
func Fqdn(label, zone string) string {
	return label + "." + strings.TrimSuffix(zone, ".") + "."
}
