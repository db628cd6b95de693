package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Truthy/falsy token tables for loosely typed caller input (CLI flags, JSON
// fields that may arrive as strings, numbers or booleans). Matching is
// case-insensitive.
var (
	truthyTokens = map[string]bool{"true": true, "t": true, "1": true, "yes": true, "y": true}
	falsyTokens  = map[string]bool{"false": true, "f": true, "0": true, "no": true, "n": true}
)

// ToBool coerces a loosely typed value into a bool. Recognized string tokens
// map through the tables above; numbers are true when non-zero; nil and blank
// strings mean "not provided" and yield def. Any other non-empty string is
// true.
func ToBool(v any, def bool) bool {
	switch t := v.(type) {
	case nil:
		return def
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if s == "" {
			return def
		}
		if truthyTokens[s] {
			return true
		}
		if falsyTokens[s] {
			return false
		}
		return true
	default:
		return def
	}
}

// ToInt coerces a loosely typed value into an int. Strings must parse as
// decimal integers; floats must be whole numbers. Anything else is a type
// error.
func ToInt(v any) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("%v is not an integer", t)
		}
		return int(t), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%T is not an integer", v)
	}
}
