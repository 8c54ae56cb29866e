package radio

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the value type of a configuration field.
type Kind int

// Field kinds.
const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Values maps configuration keys to values. Values are held as bool, int,
// float64 or string according to the field kind.
type Values map[string]any

// Field declares one configuration key.
type Field struct {
	Key  string
	Kind Kind

	// Scale converts the ASCII wire value to the stored value
	// (stored = wire * Scale). Zero means 1.
	Scale float64

	// Min and Max bound numeric values when Ranged is set.
	Min, Max float64
	Ranged   bool

	Default any
}

func (f Field) scale() float64 {
	if f.Scale == 0 {
		return 1
	}
	return f.Scale
}

func (f Field) zero() any {
	if f.Default != nil {
		return f.Default
	}
	if f.Ranged && (f.Min > 0 || f.Max < 0) {
		if f.Kind == KindInt {
			return int(f.Min)
		}
		return f.Min
	}
	switch f.Kind {
	case KindBool:
		return false
	case KindInt:
		return 0
	case KindFloat:
		return 0.0
	}
	return ""
}

// coerce converts v to the field kind and checks its range.
func (f Field) coerce(v any) (any, error) {
	var out any
	switch f.Kind {
	case KindBool:
		b, ok := toBool(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s = %v", ErrInvalidValue, f.Key, v)
		}
		return b, nil
	case KindInt:
		n, ok := toFloat(v)
		if !ok || n != math.Trunc(n) {
			return nil, fmt.Errorf("%w: %s = %v", ErrInvalidValue, f.Key, v)
		}
		out = int(n)
	case KindFloat:
		n, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s = %v", ErrInvalidValue, f.Key, v)
		}
		out = n
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s = %v", ErrInvalidValue, f.Key, v)
		}
		return s, nil
	}

	if f.Ranged {
		n, _ := toFloat(out)
		if n < f.Min || n > f.Max {
			return nil, fmt.Errorf("%w: %s = %v (want %v..%v)", ErrOutOfRange, f.Key, out, f.Min, f.Max)
		}
	}
	return out, nil
}

// format renders a stored value as an ASCII wire token.
func (f Field) format(v any) string {
	switch f.Kind {
	case KindBool:
		if b, _ := v.(bool); b {
			return "1"
		}
		return "0"
	case KindInt:
		n, _ := toFloat(v)
		return strconv.Itoa(int(n))
	case KindFloat:
		n, _ := toFloat(v)
		return strconv.FormatFloat(n/f.scale(), 'f', -1, 64)
	}
	s, _ := v.(string)
	return s
}

// parse reads an ASCII wire token into a stored value.
func (f Field) parse(token string) (any, error) {
	token = strings.TrimSpace(token)
	switch f.Kind {
	case KindBool:
		if b, ok := toBool(token); ok {
			return b, nil
		}
	case KindInt:
		if n, err := strconv.ParseFloat(token, 64); err == nil && n == math.Trunc(n) {
			return int(n), nil
		}
	case KindFloat:
		if n, err := strconv.ParseFloat(token, 64); err == nil {
			return n * f.scale(), nil
		}
	case KindString:
		return token, nil
	}
	return nil, fmt.Errorf("%w: %s token %q", ErrParse, f.Key, token)
}

func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "1", "true", "on", "yes":
			return true, true
		case "0", "false", "off", "no":
			return false, true
		}
		return false, false
	}
	if n, ok := toFloat(v); ok {
		return n != 0, true
	}
	return false, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}
