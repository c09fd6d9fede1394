package util

import (
	"fmt"
	"strconv"
	"strings"
)

var sizeUnits = []struct {
	suffix string
	mult   int64
}{
	{"KIB", 1 << 10},
	{"MIB", 1 << 20},
	{"GIB", 1 << 30},
	{"KB", 1 << 10},
	{"MB", 1 << 20},
	{"GB", 1 << 30},
	{"K", 1 << 10},
	{"M", 1 << 20},
	{"G", 1 << 30},
	{"B", 1},
}

// ParseChunkSize parses sizes such as "1024", "1KB", "4 MB" or "64KiB".
// Units are 1024-based. A bare number is a byte count.
func ParseChunkSize(chunkSize string) (int64, error) {
	s := strings.ToUpper(strings.TrimSpace(chunkSize))
	if s == "" {
		return 0, fmt.Errorf("invalid size format: %q", chunkSize)
	}

	mult := int64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(s, u.suffix) {
			mult = u.mult
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size format: %s", chunkSize)
	}
	if n < 0 {
		return 0, fmt.Errorf("size must not be negative: %s", chunkSize)
	}
	if n > (1<<62)/mult {
		return 0, fmt.Errorf("size too large: %s", chunkSize)
	}
	return n * mult, nil
}
