package port

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ParsePortSpec parses a port specification string and returns the ports in
// the order they were written, without duplicates.
// Supported forms:
//   - single: "22"
//   - list: "22,80,443"
//   - range: "1-1024"
//   - mixed: "22,80,8000-8100"
func ParsePortSpec(spec string) ([]uint16, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("empty port spec")
	}
	seen := make(map[int]struct{})
	var out []uint16
	add := func(v int) {
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, uint16(v))
	}
	for _, p := range strings.Split(spec, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, errors.New("invalid empty token in port spec")
		}
		if lo, hi, isRange := strings.Cut(p, "-"); isRange {
			start, err := parseNumber(lo)
			if err != nil {
				return nil, err
			}
			end, err := parseNumber(hi)
			if err != nil {
				return nil, err
			}
			if start > end {
				return nil, fmt.Errorf("range start greater than end: %s", p)
			}
			for i := start; i <= end; i++ {
				add(i)
			}
			continue
		}
		v, err := parseNumber(p)
		if err != nil {
			return nil, err
		}
		add(v)
	}
	return out, nil
}

func parseNumber(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, err)
	}
	if v < 1 || v > 65535 {
		return 0, errors.New("port numbers must be in 1..65535")
	}
	return v, nil
}
