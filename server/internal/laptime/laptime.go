package laptime

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalid is returned by Parse for input that is not a lap time.
var ErrInvalid = errors.New("laptime: invalid time")

var (
	minutesForm = regexp.MustCompile(`^(\d+):(\d{1,2})\.(\d{1,3})$`)
	secondsForm = regexp.MustCompile(`^(\d+)\.(\d{1,3})$`)
)

// Parse converts v to milliseconds. Numbers (float64 from encoding/json, Go
// integers, json.Number) are raw milliseconds; strings go through ParseString.
func Parse(v any) (int64, error) {
	switch x := v.(type) {
	case float64:
		return fromFloat(x)
	case float32:
		return fromFloat(float64(x))
	case int:
		return clamp(int64(x)), nil
	case int32:
		return clamp(int64(x)), nil
	case int64:
		return clamp(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, ErrInvalid
		}
		return fromFloat(f)
	case string:
		return ParseString(x)
	default:
		return 0, ErrInvalid
	}
}

// ParseString converts a typed lap time to milliseconds. Surrounding
// whitespace is ignored.
func ParseString(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalid
	}

	if m := minutesForm.FindStringSubmatch(s); m != nil {
		minutes, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, ErrInvalid
		}
		seconds, _ := strconv.ParseInt(m[2], 10, 64)
		if seconds >= 60 {
			return 0, ErrInvalid
		}
		if minutes > (math.MaxInt64-59_999)/60_000 {
			return 0, ErrInvalid
		}
		return (minutes*60+seconds)*1000 + fraction(m[3]), nil
	}

	if m := secondsForm.FindStringSubmatch(s); m != nil {
		seconds, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || seconds > (math.MaxInt64-999)/1000 {
			return 0, ErrInvalid
		}
		return seconds*1000 + fraction(m[2]), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalid
	}
	return fromFloat(f)
}

// Format renders ms for display: "MM:SS.mmm" from one minute up, "S.mmm"
// below.
func Format(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	minutes := ms / 60_000
	seconds := (ms % 60_000) / 1000
	millis := ms % 1000
	if minutes > 0 {
		return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
	}
	return fmt.Sprintf("%d.%03d", seconds, millis)
}

// fraction right-pads a 1-3 digit fraction to milliseconds: "25" -> 250.
func fraction(digits string) int64 {
	for len(digits) < 3 {
		digits += "0"
	}
	n, _ := strconv.ParseInt(digits, 10, 64)
	return n
}

func fromFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalid
	}
	if f < 0 {
		return 0, nil
	}
	if f >= math.MaxInt64 {
		return 0, ErrInvalid
	}
	return int64(math.Trunc(f)), nil
}

func clamp(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
