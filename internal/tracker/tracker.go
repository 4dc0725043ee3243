// Package tracker records which unique-constraint value tuples a session
// has already committed.
package tracker

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

// Key is the hash of one constraint tuple.
type Key = xxh3.Uint128

type entry struct {
	model      string
	constraint string
	key        Key
}

// Tracker is a per-model, per-constraint set of seen tuple keys.
// It only grows, except for Rollback of uncommitted additions and Reset.
type Tracker struct {
	seen    map[string]map[string]map[Key]struct{}
	journal []entry
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{seen: make(map[string]map[string]map[Key]struct{})}
}

// Has reports whether key was recorded for the constraint.
func (t *Tracker) Has(model, constraint string, key Key) bool {
	_, ok := t.seen[model][constraint][key]
	return ok
}

// Add records key. It returns false if the key was already present.
func (t *Tracker) Add(model, constraint string, key Key) bool {
	byConstraint, ok := t.seen[model]
	if !ok {
		byConstraint = make(map[string]map[Key]struct{})
		t.seen[model] = byConstraint
	}
	keys, ok := byConstraint[constraint]
	if !ok {
		keys = make(map[Key]struct{})
		byConstraint[constraint] = keys
	}
	if _, dup := keys[key]; dup {
		return false
	}
	keys[key] = struct{}{}
	t.journal = append(t.journal, entry{model: model, constraint: constraint, key: key})
	return true
}

// Len returns the number of keys recorded for the constraint.
func (t *Tracker) Len(model, constraint string) int {
	return len(t.seen[model][constraint])
}

// Mark returns a position that Rollback can return to.
func (t *Tracker) Mark() int {
	return len(t.journal)
}

// Rollback removes every key added since mark.
func (t *Tracker) Rollback(mark int) {
	if mark < 0 || mark > len(t.journal) {
		return
	}
	for _, e := range t.journal[mark:] {
		delete(t.seen[e.model][e.constraint], e.key)
	}
	t.journal = t.journal[:mark]
}

// Commit forgets the rollback journal.
func (t *Tracker) Commit() {
	t.journal = t.journal[:0]
}

// Reset drops every recorded key.
func (t *Tracker) Reset() {
	t.seen = make(map[string]map[string]map[Key]struct{})
	t.journal = nil
}

// Value type tags for TupleKey. Integer kinds share one tag so that an
// int override and an int64 sequence value compare equal.
const (
	tagNull   byte = 'n'
	tagString byte = 's'
	tagInt    byte = 'i'
	tagUint   byte = 'u'
	tagFloat  byte = 'f'
	tagBool   byte = 'b'
	tagTime   byte = 't'
	tagBytes  byte = 'x'
	tagOther  byte = 'v'
)

// TupleKey hashes values with a length-prefixed, type-tagged encoding.
// Values containing separator characters never collide with field
// boundaries.
func TupleKey(values []any) Key {
	buf := make([]byte, 0, 16*len(values))
	for _, v := range values {
		tag, data := encode(v)
		buf = append(buf, tag)
		buf = binary.AppendUvarint(buf, uint64(len(data)))
		buf = append(buf, data...)
	}
	return xxh3.Hash128(buf)
}

func encode(v any) (byte, []byte) {
	switch val := v.(type) {
	case nil:
		return tagNull, nil
	case string:
		return tagString, []byte(val)
	case []byte:
		return tagBytes, val
	case bool:
		return tagBool, []byte(strconv.FormatBool(val))
	case time.Time:
		return tagTime, []byte(val.UTC().Format(time.RFC3339Nano))
	case float32:
		return encodeFloat(float64(val))
	case float64:
		return encodeFloat(val)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return tagInt, strconv.AppendInt(nil, rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() <= math.MaxInt64 {
			return tagInt, strconv.AppendInt(nil, int64(rv.Uint()), 10)
		}
		return tagUint, strconv.AppendUint(nil, rv.Uint(), 10)
	case reflect.String:
		return tagString, []byte(rv.String())
	}
	return tagOther, []byte(fmt.Sprintf("%T:%v", v, v))
}

func encodeFloat(f float64) (byte, []byte) {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return tagInt, strconv.AppendInt(nil, int64(f), 10)
	}
	return tagFloat, strconv.AppendFloat(nil, f, 'g', -1, 64)
}
