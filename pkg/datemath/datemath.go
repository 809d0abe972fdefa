// Package datemath evaluates relative time expressions such as "now-24h" or "now/d".
//
// Grammar: an anchor ("now" or an RFC 3339 time followed by "||"), then any
// number of operations. "+N<unit>" and "-N<unit>" add or subtract, "/<unit>"
// rounds down. Units: s m h d w M y.
package datemath

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parse evaluates expr relative to now.
func Parse(expr string, now time.Time) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Time{}, fmt.Errorf("empty date expression")
	}

	var anchor time.Time
	var ops string
	switch {
	case strings.HasPrefix(expr, "now"):
		anchor = now
		ops = expr[len("now"):]
	default:
		idx := strings.Index(expr, "||")
		base := expr
		if idx >= 0 {
			base, ops = expr[:idx], expr[idx+2:]
		}
		t, err := time.Parse(time.RFC3339, base)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse anchor %q: %w", base, err)
		}
		anchor = t
	}

	return apply(anchor, ops)
}

// ParseMillis evaluates expr relative to now and returns epoch milliseconds.
// It returns 0 when the expression cannot be resolved.
func ParseMillis(expr string, now time.Time) int64 {
	t, err := Parse(expr, now)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

func apply(t time.Time, ops string) (time.Time, error) {
	for len(ops) > 0 {
		op := ops[0]
		ops = ops[1:]

		switch op {
		case '+', '-':
			i := 0
			for i < len(ops) && ops[i] >= '0' && ops[i] <= '9' {
				i++
			}
			n := 1
			if i > 0 {
				v, err := strconv.Atoi(ops[:i])
				if err != nil {
					return time.Time{}, fmt.Errorf("parse amount %q: %w", ops[:i], err)
				}
				n = v
			}
			if i >= len(ops) {
				return time.Time{}, fmt.Errorf("missing unit after %c%d", op, n)
			}
			if op == '-' {
				n = -n
			}
			var err error
			t, err = add(t, n, ops[i])
			if err != nil {
				return time.Time{}, err
			}
			ops = ops[i+1:]

		case '/':
			if len(ops) == 0 {
				return time.Time{}, fmt.Errorf("missing rounding unit")
			}
			var err error
			t, err = roundDown(t, ops[0])
			if err != nil {
				return time.Time{}, err
			}
			ops = ops[1:]

		default:
			return time.Time{}, fmt.Errorf("unexpected %q in date expression", op)
		}
	}
	return t, nil
}

func add(t time.Time, n int, unit byte) (time.Time, error) {
	switch unit {
	case 's':
		return t.Add(time.Duration(n) * time.Second), nil
	case 'm':
		return t.Add(time.Duration(n) * time.Minute), nil
	case 'h', 'H':
		return t.Add(time.Duration(n) * time.Hour), nil
	case 'd':
		return t.AddDate(0, 0, n), nil
	case 'w':
		return t.AddDate(0, 0, 7*n), nil
	case 'M':
		return t.AddDate(0, n, 0), nil
	case 'y':
		return t.AddDate(n, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("unknown unit %q", unit)
}

func roundDown(t time.Time, unit byte) (time.Time, error) {
	y, mo, d := t.Date()
	loc := t.Location()
	switch unit {
	case 's':
		return t.Truncate(time.Second), nil
	case 'm':
		return time.Date(y, mo, d, t.Hour(), t.Minute(), 0, 0, loc), nil
	case 'h', 'H':
		return time.Date(y, mo, d, t.Hour(), 0, 0, 0, loc), nil
	case 'd':
		return time.Date(y, mo, d, 0, 0, 0, 0, loc), nil
	case 'w':
		offset := (int(t.Weekday()) + 6) % 7 // weeks start on Monday
		return time.Date(y, mo, d-offset, 0, 0, 0, 0, loc), nil
	case 'M':
		return time.Date(y, mo, 1, 0, 0, 0, 0, loc), nil
	case 'y':
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("unknown unit %q", unit)
}
