package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSQLType(t *testing.T) {
	tests := []struct {
		input string
		base  string
		dims  int
		kind  TypeKind
	}{
		{"varchar(255)", "varchar", 0, KindText},
		{"TEXT", "text", 0, KindText},
		{"int4", "int4", 0, KindInt},
		{"bigserial", "bigserial", 0, KindInt},
		{"int4[]", "int4", 1, KindInt},
		{"text[][]", "text", 2, KindText},
		{"_text", "text", 1, KindText},
		{"jsonb", "jsonb", 0, KindJSON},
		{"numeric(10,2)", "numeric", 0, KindDecimal},
		{"double precision", "double precision", 0, KindFloat},
		{"timestamp with time zone", "timestamp with time zone", 0, KindTimestamp},
		{"date", "date", 0, KindDate},
		{"time", "time", 0, KindTime},
		{"boolean", "boolean", 0, KindBool},
		{"bytea", "bytea", 0, KindBytes},
		{"uuid", "uuid", 0, KindUUID},
		{"citext", "citext", 0, KindText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseSQLType(tt.input)
			assert.Equal(t, tt.base, got.Base)
			assert.Equal(t, tt.dims, got.Dims)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, 0, got.Element().Dims)
		})
	}
}
