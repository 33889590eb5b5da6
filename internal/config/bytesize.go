package config

import (
	"fmt"
	"strconv"
	"strings"
)

// byteSizeUnits maps the suffixes accepted in server.nonce_cache_size
// ("1MB", "512KB", "2GB") to their byte multiplier. Matched longest-first
// so "KB" isn't shadowed by a bare "B" suffix.
var byteSizeUnits = []struct {
	suffix     string
	multiplier int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseByteSize parses a human byte-size string such as "1MB" or "512KB"
// into a raw byte count. A bare integer is interpreted as bytes. Used to
// turn server.nonce_cache_size into the byte budget noncecache.NewCache
// expects.
func ParseByteSize(s string) (int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("config: empty byte size")
	}

	upper := strings.ToUpper(trimmed)
	for _, unit := range byteSizeUnits {
		if strings.HasSuffix(upper, unit.suffix) {
			numPart := strings.TrimSpace(upper[:len(upper)-len(unit.suffix)])
			if numPart == "" {
				continue
			}
			value, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, fmt.Errorf("config: invalid byte size %q: %w", s, err)
			}
			return int(value * float64(unit.multiplier)), nil
		}
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("config: invalid byte size %q: %w", s, err)
	}
	return value, nil
}
