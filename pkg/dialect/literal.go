package dialect

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapseed/pkg/core"
)

// UnsupportedValueError is returned for values with no literal form.
type UnsupportedValueError struct {
	Value   any
	SQLType string
	Reason  string
}

func (e *UnsupportedValueError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot render %T as %s literal: %s", e.Value, e.SQLType, e.Reason)
	}
	return fmt.Sprintf("cannot render %T as %s literal", e.Value, e.SQLType)
}

// Literal renders v as a SQL literal for a column of the declared type.
// nil renders as NULL. The use-default marker is handled by callers.
func (d *Dialect) Literal(v any, sqlType string) (string, error) {
	t := core.ParseSQLType(sqlType)
	if v == nil {
		return "NULL", nil
	}
	if t.IsArray() {
		return d.array(v, sqlType, t)
	}
	return d.scalar(v, sqlType, t)
}

func (d *Dialect) scalar(v any, sqlType string, t core.SQLType) (string, error) {
	if t.Kind == core.KindJSON {
		return d.json(v, sqlType)
	}

	switch val := v.(type) {
	case string:
		return d.QuoteString(val), nil
	case bool:
		if val {
			return d.TrueLiteral, nil
		}
		return d.FalseLiteral, nil
	case []byte:
		return d.BytesLiteral(val), nil
	case time.Time:
		return d.QuoteString(d.formatTime(val, t)), nil
	case json.RawMessage:
		return d.QuoteString(string(val)), nil
	case float32:
		return d.float(float64(val)), nil
	case float64:
		return d.float(val), nil
	case fmt.Stringer:
		return d.QuoteString(val.String()), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.String:
		return d.QuoteString(rv.String()), nil
	case reflect.Map, reflect.Slice, reflect.Struct:
		return d.json(v, sqlType)
	}
	return "", &UnsupportedValueError{Value: v, SQLType: sqlType}
}

func (d *Dialect) float(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return d.QuoteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (d *Dialect) formatTime(ts time.Time, t core.SQLType) string {
	switch t.Kind {
	case core.KindDate:
		return ts.Format(time.DateOnly)
	case core.KindTime:
		return ts.Format("15:04:05.999999")
	}
	return ts.UTC().Format(d.TimestampLayout)
}

// json renders v as JSON text. Strings are assumed to hold JSON already.
func (d *Dialect) json(v any, sqlType string) (string, error) {
	switch val := v.(type) {
	case string:
		return d.QuoteString(val), nil
	case json.RawMessage:
		return d.QuoteString(string(val)), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", &UnsupportedValueError{Value: v, SQLType: sqlType, Reason: err.Error()}
	}
	return d.QuoteString(string(b)), nil
}

func (d *Dialect) array(v any, sqlType string, t core.SQLType) (string, error) {
	if err := checkDims(v, t.Dims); err != nil {
		return "", &UnsupportedValueError{Value: v, SQLType: sqlType, Reason: err.Error()}
	}
	elem := t.Element()

	switch d.Arrays {
	case ArrayBraces:
		var sb strings.Builder
		if err := d.braces(&sb, reflect.ValueOf(v), elem, sqlType); err != nil {
			return "", err
		}
		return d.QuoteString(sb.String()), nil
	case ArrayBrackets:
		return d.brackets(reflect.ValueOf(v), elem, sqlType)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", &UnsupportedValueError{Value: v, SQLType: sqlType, Reason: err.Error()}
		}
		return d.QuoteString(string(b)), nil
	}
}

// checkDims verifies v nests exactly dims levels of slices.
func checkDims(v any, dims int) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	if dims == 0 {
		if isList(rv) {
			return fmt.Errorf("array nested deeper than declared")
		}
		return nil
	}
	if !isList(rv) {
		return fmt.Errorf("expected %d-dimensional array, got %s", dims, rv.Kind())
	}
	for i := 0; i < rv.Len(); i++ {
		e := rv.Index(i)
		if e.Kind() == reflect.Interface && e.IsNil() {
			continue
		}
		if err := checkDims(e.Interface(), dims-1); err != nil {
			return err
		}
	}
	return nil
}

func isList(rv reflect.Value) bool {
	if !rv.IsValid() {
		return false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return false
	}
	return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
}

// braces writes a PostgreSQL array value: {1,2}, {"a","b"}, {{1,2},{3,4}}.
func (d *Dialect) braces(sb *strings.Builder, rv reflect.Value, elem core.SQLType, sqlType string) error {
	if rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	sb.WriteByte('{')
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		e := rv.Index(i)
		if e.Kind() == reflect.Interface {
			e = e.Elem()
		}
		if !e.IsValid() {
			sb.WriteString("NULL")
			continue
		}
		if isList(e) {
			if err := d.braces(sb, e, elem, sqlType); err != nil {
				return err
			}
			continue
		}
		s, err := arrayElement(e.Interface(), elem, d)
		if err != nil {
			return &UnsupportedValueError{Value: e.Interface(), SQLType: sqlType, Reason: err.Error()}
		}
		sb.WriteString(s)
	}
	sb.WriteByte('}')
	return nil
}

// arrayElement renders one element inside a brace array.
func arrayElement(v any, elem core.SQLType, d *Dialect) (string, error) {
	switch val := v.(type) {
	case bool:
		return strconv.FormatBool(val), nil
	case time.Time:
		return quoteElement(d.formatTime(val, elem)), nil
	case []byte:
		return quoteElement(`\x` + fmt.Sprintf("%x", val)), nil
	case string:
		return quoteElement(val), nil
	case float32, float64:
		return fmt.Sprint(val), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.String:
		return quoteElement(rv.String()), nil
	case reflect.Map, reflect.Struct:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return quoteElement(string(b)), nil
	}
	return "", fmt.Errorf("unsupported element type %T", v)
}

// quoteElement double-quotes an array element, escaping quotes and backslashes.
func quoteElement(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// brackets renders a list expression with per-element literals.
func (d *Dialect) brackets(rv reflect.Value, elem core.SQLType, sqlType string) (string, error) {
	if rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	parts := make([]string, rv.Len())
	for i := range parts {
		e := rv.Index(i)
		if e.Kind() == reflect.Interface {
			e = e.Elem()
		}
		var (
			s   string
			err error
		)
		switch {
		case !e.IsValid():
			s = "NULL"
		case isList(e):
			s, err = d.brackets(e, elem, sqlType)
		default:
			s, err = d.scalar(e.Interface(), sqlType, elem)
		}
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "[" + strings.Join(parts, ", ") + "]", nil
}
