package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersAndPosts() []*Model {
	users := &Model{
		ID: "users",
		Fields: []Field{
			&ScalarField{Name: "id", SQLType: "int4", IsID: true, IsRequired: true,
				Sequence: &Sequence{Identifier: "users_id_seq", Increment: 1, Current: 1}},
			&RelationField{Name: "posts", RelationName: "PostToUser", TargetModel: "posts", IsList: true},
		},
	}
	posts := &Model{
		ID: "posts",
		Fields: []Field{
			&ScalarField{Name: "id", SQLType: "int4", IsID: true, IsRequired: true,
				Sequence: &Sequence{Identifier: "posts_id_seq", Increment: 1, Current: 1}},
			&ScalarField{Name: "userId", ColumnName: "user_id", SQLType: "int4", IsRequired: true},
			&RelationField{Name: "user", RelationName: "PostToUser", TargetModel: "users",
				FromFields: []string{"userId"}, ToFields: []string{"id"}, IsRequired: true},
		},
	}
	return []*Model{users, posts}
}

func TestNewDataModel(t *testing.T) {
	dm, err := NewDataModel(usersAndPosts()...)
	require.NoError(t, err)

	posts, ok := dm.Model("posts")
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, posts.IDFields())

	rel, ok := posts.OwningRelation("userId")
	require.True(t, ok)
	assert.Equal(t, "user", rel.Name)
	assert.True(t, rel.IsParent())

	users, _ := dm.Model("users")
	list := users.Relations()[0]
	inv, ok := dm.Inverse(users, list)
	require.True(t, ok)
	assert.Equal(t, rel, inv)

	assert.Len(t, dm.Sequences(), 2)
	col, _ := posts.Scalar("userId")
	assert.Equal(t, "user_id", col.Column())
}

func TestDataModel_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(ms []*Model)
		errPart string
	}{
		{
			name: "unknown target",
			mutate: func(ms []*Model) {
				ms[1].Fields[2].(*RelationField).TargetModel = "accounts"
			},
			errPart: "unknown model",
		},
		{
			name: "mismatched from/to",
			mutate: func(ms []*Model) {
				ms[1].Fields[2].(*RelationField).ToFields = []string{"id", "id"}
			},
			errPart: "from fields",
		},
		{
			name: "list with fields",
			mutate: func(ms []*Model) {
				ms[0].Fields[1].(*RelationField).FromFields = []string{"id"}
				ms[0].Fields[1].(*RelationField).ToFields = []string{"userId"}
			},
			errPart: "must not carry",
		},
		{
			name: "unique on unknown field",
			mutate: func(ms []*Model) {
				ms[1].UniqueConstraints = []UniqueConstraint{{Name: "posts_slug_key", Fields: []string{"slug"}}}
			},
			errPart: "unknown scalar field",
		},
		{
			name: "zero increment",
			mutate: func(ms []*Model) {
				ms[0].Fields[0].(*ScalarField).Sequence.Increment = 0
			},
			errPart: "zero increment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := usersAndPosts()
			tt.mutate(ms)
			_, err := NewDataModel(ms...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestNewDataModel_Duplicate(t *testing.T) {
	ms := usersAndPosts()
	_, err := NewDataModel(ms[0], ms[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate model")
}

func TestRow_CloneIsIndependent(t *testing.T) {
	r := Row{Model: "users", Values: map[string]any{"id": 1}}
	c := r.Clone()
	c.Values["id"] = 2
	assert.Equal(t, 1, r.Values["id"])
	assert.Equal(t, []any{2}, c.Tuple([]string{"id"}))
	assert.True(t, IsDefault(UseDefault))
	assert.False(t, IsDefault(nil))
}

func TestDataModel_Referenced(t *testing.T) {
	dm, err := NewDataModel(usersAndPosts()...)
	require.NoError(t, err)

	assert.True(t, dm.Referenced("users", "id"))
	assert.False(t, dm.Referenced("posts", "id"))
	assert.False(t, dm.Referenced("posts", "userId"))
	assert.False(t, dm.Referenced("comments", "id"))
}
