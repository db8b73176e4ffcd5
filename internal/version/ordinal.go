package version

import "strings"

// modifiers are the release-qualifier keywords recognized anywhere in a
// version string, with the sign of the adjustment they contribute.
var modifiers = []struct {
	keyword string
	sign    int64
}{
	{"rc", -1},
	{"pre", -1},
	{"dev", -1},
	{"post", 1},
}

// slots is the number of one-byte components an ordinal holds.
const slots = 6

// Ordinal is the packed, totally ordered form of a version string.
// A greater ordinal means a newer version. Ordinals are only produced by Encode.
type Ordinal struct {
	value int64
}

// Compare returns -1, 0 or 1 when o is older than, equal to or newer than other.
func (o Ordinal) Compare(other Ordinal) int {
	switch {
	case o.value < other.value:
		return -1
	case o.value > other.value:
		return 1
	default:
		return 0
	}
}

// Less reports whether o orders strictly before other.
func (o Ordinal) Less(other Ordinal) bool { return o.value < other.value }

// IsZero reports whether o is the "version zero" ordinal.
func (o Ordinal) IsZero() bool { return o.value == 0 }

// Int64 exposes the raw packed value for display and debugging.
func (o Ordinal) Int64() int64 { return o.value }

// Encode converts a version string to its ordinal.
//
// Each dot-separated component contributes its numeric head as one byte:
// ordinal = ordinal<<8 | head. Packing stops at the first component that
// starts with a non-digit or after six components. The packed bytes are
// left-aligned, so "1.3" and "1.2.13" compare component by component. The
// first numeric head followed by a letter (e.g. "2a3") adds 10+(letter-'a')
// plus the digits right after the letter.
// The leftmost rc/pre/dev/post keyword adjusts the result by its trailing
// number, or by one when no number follows. The empty string encodes to zero.
func Encode(s string) Ordinal {
	if s == "" {
		return Ordinal{}
	}

	var ord int64
	var letter int64
	letterSeen := false
	packed := 0

	for _, comp := range strings.Split(s, ".") {
		if packed == slots {
			break
		}
		head, n := leadingNumber(comp)
		if n == 0 && comp != "" {
			break
		}
		ord = ord<<8 | head
		packed++

		tail := comp[n:]
		if letterSeen || tail == "" || !isLetter(tail[0]) || startsWithModifier(tail) {
			continue
		}
		letterSeen = true
		letter = 10 + int64(lower(tail[0])-'a')
		if digits, m := leadingNumber(tail[1:]); m > 0 {
			letter += digits
		}
	}

	ord <<= 8 * (slots - packed)
	return Ordinal{value: ord + letter + modifierAdjustment(s)}
}

// modifierAdjustment returns the signed adjustment of the leftmost
// modifier keyword found in s, or zero when none is present.
func modifierAdjustment(s string) int64 {
	lowered := strings.ToLower(s)
	best := -1
	var adj int64

	for _, mod := range modifiers {
		idx := strings.Index(lowered, mod.keyword)
		if idx < 0 || (best >= 0 && idx >= best) {
			continue
		}
		best = idx
		n, digits := leadingNumber(lowered[idx+len(mod.keyword):])
		if digits == 0 {
			n = 1
		}
		adj = mod.sign * n
	}
	return adj
}

// startsWithModifier reports whether an alphabetic tail is a modifier
// keyword rather than a plain letter suffix.
func startsWithModifier(tail string) bool {
	lowered := strings.ToLower(tail)
	for _, mod := range modifiers {
		if strings.HasPrefix(lowered, mod.keyword) {
			return true
		}
	}
	return false
}

// leadingNumber parses the run of ASCII digits at the start of s and returns
// its value and length. Overlong runs wrap rather than fail.
func leadingNumber(s string) (int64, int) {
	var v int64
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		v = v*10 + int64(s[i]-'0')
		i++
	}
	return v, i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
