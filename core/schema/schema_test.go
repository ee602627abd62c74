package schema_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamalshkeir/kadmin/core/orm"
	"github.com/kamalshkeir/kadmin/core/schema"
)

const sampleDoc = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "User": {
      "type": "object",
      "x-table": "users",
      "properties": {
        "id": {"type": "integer", "readOnly": true},
        "email": {"type": "string", "format": "email"},
        "name": {"type": ["string", "null"]},
        "role": {"type": "string", "enum": ["USER", "ADMIN"], "default": "USER"},
        "posts": {"type": "array", "items": {"$ref": "#/definitions/Post"}}
      },
      "required": ["email"]
    },
    "Post": {
      "type": "object",
      "x-primary-key": "post_id",
      "properties": {
        "post_id": {"type": "integer"},
        "title": {"type": "string"},
        "content": {"type": "string", "format": "html"},
        "author": {"$ref": "#/definitions/User"},
        "author_id": {"type": "integer"}
      }
    }
  }
}`

func TestParse(t *testing.T) {
	doc, err := schema.Parse([]byte(sampleDoc))
	require.NoError(t, err)
	assert.Equal(t, []string{"User", "Post"}, doc.ModelNames())

	user, ok := doc.Model("user")
	require.True(t, ok)
	assert.Equal(t, "users", user.Table)
	assert.Equal(t, "id", user.PrimaryKey)

	want := []schema.Field{
		{Name: "id", Type: "integer", ReadOnly: true},
		{Name: "email", Type: "string", Format: "email", Required: true},
		{Name: "name", Type: "string", Nullable: true},
		{Name: "role", Type: "string", Enum: []string{"USER", "ADMIN"}, Default: "USER"},
		{Name: "posts", Type: "array", List: true, Relation: "Post"},
	}
	if diff := cmp.Diff(want, user.Fields); diff != "" {
		t.Errorf("user fields mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, user.ScalarFields(), 4)
	assert.Equal(t, []string{"email", "name", "role"}, user.StringFields())

	post, ok := doc.Model("Post")
	require.True(t, ok)
	assert.Equal(t, "posts", post.Table)
	assert.Equal(t, "post_id", post.PrimaryKey)
	author, ok := post.Field("author")
	require.True(t, ok)
	assert.Equal(t, "User", author.Relation)
	assert.False(t, author.IsScalar())
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"empty":          "  ",
		"not json":       "{",
		"no definitions": `{"definitions": {}}`,
		"no properties":  `{"definitions": {"A": {"type": "object"}}}`,
		"bad ref":        `{"definitions": {"A": {"type": "object", "properties": {"id": {"type": "integer"}, "b": {"$ref": "#/definitions/B"}}}}}`,
		"no pk":          `{"definitions": {"A": {"type": "object", "properties": {"name": {"type": "string"}}}}}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := schema.Parse([]byte(data))
			assert.ErrorIs(t, err, schema.ErrInvalidDocument)
		})
	}
}

type Article struct {
	Id       int    `orm:"pk"`
	Title    string `orm:"size:80"`
	Password string
	Draft    bool
}

func TestGenerate(t *testing.T) {
	conn, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "gen.sqlite"))
	require.NoError(t, err)
	require.NoError(t, orm.NewDatabaseFromConnection(orm.SQLITE, "schema_gen", conn))
	t.Cleanup(func() { _ = orm.ShutdownDatabases("schema_gen") })
	require.NoError(t, orm.AutoMigrate[Article]("articles", "schema_gen"))

	data, err := schema.Generate(context.Background(), "schema_gen")
	require.NoError(t, err)

	doc, err := schema.Parse(data)
	require.NoError(t, err)
	m, ok := doc.Model("Article")
	require.True(t, ok)
	assert.Equal(t, "articles", m.Table)
	assert.Equal(t, "id", m.PrimaryKey)

	id, _ := m.Field("id")
	assert.Equal(t, "integer", id.Type)
	assert.True(t, id.ReadOnly)
	draft, _ := m.Field("draft")
	assert.Equal(t, "boolean", draft.Type)
	pass, _ := m.Field("password")
	assert.Equal(t, "password", pass.Format)
}

func TestModelName(t *testing.T) {
	assert.Equal(t, "User", schema.ModelName("users"))
	assert.Equal(t, "BlogPost", schema.ModelName("blog_posts"))
}
