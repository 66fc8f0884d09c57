package config

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// sizeUnits maps the accepted upper-cased suffixes to their byte multiplier.
// Note files stay far below a terabyte, so the table stops at gigabytes.
var sizeUnits = map[string]int64{
	"":    1,
	"B":   1,
	"KB":  1000,
	"MB":  1000 * 1000,
	"GB":  1000 * 1000 * 1000,
	"KIB": 1 << 10,
	"MIB": 1 << 20,
	"GIB": 1 << 30,
}

// ParseSize converts a size such as "512", "10MB" or "1GiB" to bytes. The
// number is a non-negative integer; the unit is case-insensitive and may be
// separated by spaces. Empty means 0.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	split := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if split == -1 {
		split = len(s)
	}

	if split == 0 {
		return 0, fmt.Errorf("invalid size %q: must start with a non-negative integer", s)
	}

	unit := strings.ToUpper(strings.TrimSpace(s[split:]))

	mult, ok := sizeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("invalid size %q: unknown unit %q (use B, KB, MB, GB, KiB, MiB or GiB)", s, s[split:])
	}

	n, err := strconv.ParseInt(s[:split], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	if n > (1<<63-1)/mult {
		return 0, fmt.Errorf("invalid size %q: too large", s)
	}

	return n * mult, nil
}
