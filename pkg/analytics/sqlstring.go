package analytics

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Format substitutes named placeholders (:name) in sql with escaped
// literals. "::" casts are copied through and placeholders without a
// parameter are left as they are.
func Format(sql string, params map[string]interface{}) (string, error) {
	if len(params) == 0 {
		return strings.TrimSpace(sql), nil
	}

	var b strings.Builder
	b.Grow(len(sql))

	for i := 0; i < len(sql); {
		ch := sql[i]

		if ch == ':' && i+1 < len(sql) && sql[i+1] == ':' {
			b.WriteString("::")
			i += 2
			for i < len(sql) && isIdentChar(sql[i]) {
				b.WriteByte(sql[i])
				i++
			}
			continue
		}

		if ch == ':' {
			j := i + 1
			for j < len(sql) && isIdentChar(sql[j]) {
				j++
			}
			name := sql[i+1 : j]
			if value, ok := params[name]; ok && name != "" {
				literal, err := FormatValue(value)
				if err != nil {
					return "", fmt.Errorf("parameter %s: %w", name, err)
				}
				b.WriteString(literal)
				i = j
				continue
			}
		}

		b.WriteByte(ch)
		i++
	}

	return strings.TrimSpace(b.String()), nil
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// EscapeString quotes s, doubling embedded single quotes
func EscapeString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// FormatValue renders a Go value as a SQL literal
func FormatValue(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "NULL", nil
	case string:
		return EscapeString(v), nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return formatFloat(float64(v))
	case float64:
		return formatFloat(v)
	case json.Number:
		if _, err := decimal.NewFromString(v.String()); err != nil {
			return "", fmt.Errorf("invalid number value: %s", v)
		}
		return v.String(), nil
	case decimal.Decimal:
		return v.String(), nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		items := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i).Interface()
			if k := reflect.ValueOf(item).Kind(); k == reflect.Slice || k == reflect.Array || k == reflect.Bool {
				return "", fmt.Errorf("unsupported array element type: %T", item)
			}
			literal, err := FormatValue(item)
			if err != nil {
				return "", err
			}
			items = append(items, literal)
		}
		return "(" + strings.Join(items, ", ") + ")", nil
	}

	return "", fmt.Errorf("unsupported parameter type: %T", value)
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("invalid number value: %v", f)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}
