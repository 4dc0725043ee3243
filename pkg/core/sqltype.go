package core

import "strings"

// TypeKind classifies a declared column type for generation and literal
// serialization.
type TypeKind int

// Type kinds.
const (
	KindText TypeKind = iota
	KindInt
	KindFloat
	KindDecimal
	KindBool
	KindUUID
	KindJSON
	KindDate
	KindTimestamp
	KindTime
	KindBytes
)

// SQLType is a parsed column type.
type SQLType struct {
	// Base is the lowercased element type without modifiers, e.g. "varchar".
	Base string
	// Dims is the array dimensionality; 0 for scalars.
	Dims int
	Kind TypeKind
}

// IsArray reports whether the type is an array.
func (t SQLType) IsArray() bool { return t.Dims > 0 }

// Element returns the type of one array element.
func (t SQLType) Element() SQLType {
	return SQLType{Base: t.Base, Kind: t.Kind}
}

// ParseSQLType parses declarations like "varchar(255)", "int4[]",
// "_text", "integer[][]" or "timestamp with time zone".
func ParseSQLType(s string) SQLType {
	t := strings.ToLower(strings.TrimSpace(s))
	dims := 0
	for strings.HasSuffix(t, "[]") {
		dims++
		t = strings.TrimSpace(strings.TrimSuffix(t, "[]"))
	}
	// Postgres internal array names: _int4, _text.
	if dims == 0 && strings.HasPrefix(t, "_") {
		dims = 1
		t = t[1:]
	}
	if idx := strings.Index(t, "("); idx > 0 {
		t = strings.TrimSpace(t[:idx])
	}
	return SQLType{Base: t, Dims: dims, Kind: kindOf(t)}
}

func kindOf(base string) TypeKind {
	switch {
	case base == "uuid" || base == "uniqueidentifier":
		return KindUUID
	case strings.HasPrefix(base, "json"):
		return KindJSON
	case base == "bool" || base == "boolean" || base == "bit":
		return KindBool
	case base == "bytea" || strings.Contains(base, "blob") || strings.Contains(base, "binary"):
		return KindBytes
	case strings.HasPrefix(base, "timestamp") || base == "datetime" || base == "timestamptz":
		return KindTimestamp
	case base == "date":
		return KindDate
	case strings.HasPrefix(base, "time"):
		return KindTime
	case base == "interval" || base == "point":
		return KindText
	case strings.HasPrefix(base, "int") || strings.HasSuffix(base, "int") || strings.Contains(base, "serial"):
		return KindInt
	case base == "decimal" || base == "numeric" || base == "money":
		return KindDecimal
	case strings.Contains(base, "float") || strings.Contains(base, "double") || base == "real":
		return KindFloat
	}
	return KindText
}
