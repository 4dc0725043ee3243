package store

import (
	"testing"

	"github.com/leapstack-labs/leapseed/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(model string, id int) core.Row {
	return core.Row{Model: model, Values: map[string]any{"id": id}}
}

func TestStore_AppendAndRows(t *testing.T) {
	s := New()
	s.Append(row("users", 1))
	s.Append(row("posts", 1))
	s.Append(row("users", 2))

	assert.Equal(t, 2, s.Len("users"))
	assert.Equal(t, []string{"users", "posts"}, s.Models())

	rows := s.Rows("users")
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[1].Values["id"])

	// Returned slices are copies.
	rows[0] = row("users", 99)
	assert.Equal(t, 1, s.Rows("users")[0].Values["id"])
	assert.Equal(t, 3, s.All().Count())
}

func TestStore_Rollback(t *testing.T) {
	s := New()
	s.Append(row("users", 1))
	cp := s.Checkpoint()

	s.Append(row("users", 2))
	s.Append(row("posts", 1))
	s.Rollback(cp)

	assert.Equal(t, 1, s.Len("users"))
	assert.Equal(t, 0, s.Len("posts"))
	assert.Equal(t, []string{"users"}, s.Models())
}

func TestStore_PendingAndFlush(t *testing.T) {
	s := New()
	s.Append(row("users", 1))
	s.MarkFlushed()
	s.Append(row("users", 2))
	s.Append(row("posts", 1))

	pending := s.Pending()
	require.Len(t, pending["users"], 1)
	assert.Equal(t, 2, pending["users"][0].Values["id"])
	assert.Len(t, pending["posts"], 1)

	s.MarkFlushed()
	assert.Empty(t, s.Pending())
}

func TestStore_Reset(t *testing.T) {
	s := New()
	s.Append(row("users", 1))
	s.MarkFlushed()
	s.Reset()

	assert.Equal(t, 0, s.Len("users"))
	assert.Empty(t, s.Models())
	s.Append(row("users", 1))
	assert.Len(t, s.Pending()["users"], 1)
}
