package logger

import (
	"regexp"
	"strings"
)

// Contact details identify patients and staff, so log lines and event
// payloads only ever carry the masked forms below.

var (
	emailPattern = regexp.MustCompile(`^([^@]{1,3})[^@]*(@.+)$`)
	phonePattern = regexp.MustCompile(`^(\+?\d{1,3})(\d{4,})(\d{4})$`)
)

// MaskEmail keeps at most three leading characters of the local part and the
// full domain: erin.admin@myvitalink.app becomes eri***@myvitalink.app.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	if m := emailPattern.FindStringSubmatch(email); len(m) == 3 {
		return m[1] + "***" + m[2]
	}
	if _, domain, ok := strings.Cut(email, "@"); ok {
		return "***@" + domain
	}
	return "***"
}

// MaskPhone keeps the country prefix and the last four digits:
// +13035550147 becomes +130***0147. Numbers too short to split safely keep
// only their last four digits, or nothing at all.
func MaskPhone(phone string) string {
	if phone == "" {
		return ""
	}
	if m := phonePattern.FindStringSubmatch(phone); len(m) == 4 {
		return m[1] + "***" + m[3]
	}
	if len(phone) > 4 {
		return "***" + phone[len(phone)-4:]
	}
	return "***"
}

// MaskIP keeps the first two IPv4 octets (192.168.1.100 becomes 192.168.*.*)
// or the first four IPv6 groups. Anything unparseable collapses to "***".
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}
	if strings.Contains(ip, ".") {
		if octets := strings.Split(ip, "."); len(octets) == 4 {
			return octets[0] + "." + octets[1] + ".*.*"
		}
	}
	if strings.Contains(ip, ":") {
		if groups := strings.Split(ip, ":"); len(groups) >= 4 {
			return strings.Join(groups[:4], ":") + ":*:*:*:*"
		}
	}
	return "***"
}

// MaskString hides the middle of an arbitrary secret, keeping two characters
// on each end. Values of four characters or fewer are fully hidden.
func MaskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "***"
	}
	return s[:2] + "***" + s[len(s)-2:]
}
