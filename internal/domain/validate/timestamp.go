package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseTimestamp accepts plain seconds ("75", "12.5"), MM:SS or HH:MM:SS.
func ParseTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	if len(parts) == 1 {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		return v, nil
	}

	var total float64
	for i, p := range parts {
		last := i == len(parts)-1
		var v float64
		if last {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil || f < 0 || f >= 60 {
				return 0, fmt.Errorf("invalid timestamp %q", s)
			}
			v = f
		} else {
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 || (i > 0 && n >= 60) {
				return 0, fmt.Errorf("invalid timestamp %q", s)
			}
			v = float64(n)
		}
		total = total*60 + v
	}
	return total, nil
}

// FormatTimestamp renders seconds as MM:SS, or HH:MM:SS from one hour up.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	h, m, sec := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}
