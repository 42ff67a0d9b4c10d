package metadata

import (
	"strconv"
	"strings"
	"time"
)

// Kind enumerates the closed set of value kinds the store can hold.
type Kind uint8

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindTimestamp
	KindStringList
)

// Value is a tagged scalar. Building metadata from Values rather than from
// an open map keeps composite shapes from ever reaching the store boundary.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	t    time.Time
	list []string
}

func String(s string) Value           { return Value{kind: KindString, str: s} }
func Number(n float64) Value          { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value               { return Value{kind: KindBool, b: b} }
func Timestamp(t time.Time) Value     { return Value{kind: KindTimestamp, t: t} }
func StringList(items []string) Value { return Value{kind: KindStringList, list: items} }

// Kind reports which variant the value holds.
func (v Value) Kind() Kind { return v.kind }

// Scalar converts the value to the representation sent to the store:
// timestamps become RFC 3339 strings and lists become one comma-joined
// string; strings, numbers and booleans pass through.
func (v Value) Scalar() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindTimestamp:
		return v.t.UTC().Format(time.RFC3339)
	case KindStringList:
		return strings.Join(v.list, ",")
	default:
		return v.str
	}
}

// Map is document metadata restricted to the allowed value kinds.
type Map map[string]Value

// Flatten produces the scalar mapping stored alongside a document.
func (m Map) Flatten() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Scalar()
	}
	return out
}

// FromAny classifies an arbitrary decoded value into the allowed set.
// Nil and composites outside the set (maps, mixed slices) are rejected;
// dropping them is the documented lossy behavior of flattening.
func FromAny(raw any) (Value, bool) {
	switch x := raw.(type) {
	case nil:
		return Value{}, false
	case string:
		return String(x), true
	case bool:
		return Bool(x), true
	case float64:
		return Number(x), true
	case float32:
		return Number(float64(x)), true
	case int:
		return Number(float64(x)), true
	case int64:
		return Number(float64(x)), true
	case time.Time:
		return Timestamp(x), true
	case []string:
		return StringList(x), true
	case []any:
		items := make([]string, 0, len(x))
		for _, it := range x {
			switch s := it.(type) {
			case string:
				items = append(items, s)
			case float64:
				items = append(items, strconv.FormatFloat(s, 'f', -1, 64))
			default:
				return Value{}, false
			}
		}
		return StringList(items), true
	default:
		return Value{}, false
	}
}

// FlattenAny flattens an open mapping, dropping every entry that does not
// fit the allowed value kinds.
func FlattenAny(raw map[string]any) map[string]any {
	m := make(Map, len(raw))
	for k, v := range raw {
		if val, ok := FromAny(v); ok {
			m[k] = val
		}
	}
	return m.Flatten()
}
