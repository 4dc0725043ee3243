package fake

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapseed/pkg/core"
)

// builtins maps a generator name to the synthetic field it draws for.
var builtins = map[string]*core.ScalarField{
	"address":    {Name: "address", SQLType: "text"},
	"bool":       {Name: "flag", SQLType: "boolean"},
	"date":       {Name: "date", SQLType: "date"},
	"decimal":    {Name: "amount", SQLType: "numeric"},
	"email":      {Name: "email", SQLType: "text"},
	"first_name": {Name: "first_name", SQLType: "text"},
	"float":      {Name: "value", SQLType: "float8"},
	"int":        {Name: "value", SQLType: "int8"},
	"last_name":  {Name: "last_name", SQLType: "text"},
	"name":       {Name: "name", SQLType: "text"},
	"paragraph":  {Name: "description", SQLType: "text"},
	"phone":      {Name: "phone", SQLType: "text"},
	"slug":       {Name: "slug", SQLType: "text"},
	"time":       {Name: "time", SQLType: "time"},
	"timestamp":  {Name: "created_at", SQLType: "timestamptz"},
	"title":      {Name: "title", SQLType: "text"},
	"url":        {Name: "url", SQLType: "text"},
	"uuid":       {Name: "uuid", SQLType: "uuid"},
	"word":       {Name: "word", SQLType: "text"},
}

// UnknownBuiltinError is returned when a built-in generator name is not
// known.
type UnknownBuiltinError struct {
	Name      string
	Available []string
}

func (e *UnknownBuiltinError) Error() string {
	return fmt.Sprintf("unknown builtin generator %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// Builtins returns the names accepted by Builtin, sorted.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Builtin returns the named generator. The returned function is
// deterministic in its seed.
func (g *Generator) Builtin(name string) (func(seed string) any, error) {
	f, ok := builtins[name]
	if !ok {
		return nil, &UnknownBuiltinError{Name: name, Available: Builtins()}
	}
	return func(seed string) any {
		return g.Value(f, seed)
	}, nil
}
