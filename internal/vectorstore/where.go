package vectorstore

import (
	"strconv"
	"strings"
)

// MatchWhere evaluates the where dialect described on Storage against one
// document's metadata. A nil or empty predicate matches everything.
func MatchWhere(meta, where map[string]any) bool {
	for key, cond := range where {
		val, present := meta[key]
		ops, isOps := cond.(map[string]any)
		if !isOps {
			if !present || !scalarEqual(val, cond) {
				return false
			}
			continue
		}
		if !present {
			return false
		}
		if !matchOps(val, ops) {
			return false
		}
	}
	return true
}

func matchOps(val any, ops map[string]any) bool {
	for op, arg := range ops {
		switch op {
		case "$eq":
			if !scalarEqual(val, arg) {
				return false
			}
		case "$in":
			if !anyOf(val, arg) {
				return false
			}
		case "$contains":
			if !listContainsAny(val, arg) {
				return false
			}
		case "$gte":
			s, ok := val.(string)
			a, ok2 := arg.(string)
			if !ok || !ok2 || s < a {
				return false
			}
		case "$lte":
			s, ok := val.(string)
			a, ok2 := arg.(string)
			if !ok || !ok2 || s > a {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func anyOf(val, arg any) bool {
	for _, cand := range toStrings(arg) {
		if scalarEqual(val, cand) {
			return true
		}
	}
	return false
}

// listContainsAny treats val as a comma-joined string list and matches when
// any wanted item is present.
func listContainsAny(val, arg any) bool {
	s, ok := val.(string)
	if !ok {
		return false
	}
	items := strings.Split(s, ",")
	for _, want := range toStrings(arg) {
		for _, item := range items {
			if strings.TrimSpace(item) == want {
				return true
			}
		}
	}
	return false
}

func toStrings(arg any) []string {
	switch x := arg.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, v := range x {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{x}
	default:
		return nil
	}
}

// scalarEqual compares store scalars, tolerating the int/float64 split that
// JSON decoding introduces.
func scalarEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil && looksNumeric(x) {
			return f, true
		}
	}
	return 0, false
}

// looksNumeric guards against treating free text as a number during
// equality checks; only pure numeric strings participate.
func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' && r != 'e' && r != 'E' {
			return false
		}
	}
	return true
}
