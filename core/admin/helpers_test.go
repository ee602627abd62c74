package admin_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kamalshkeir/kadmin/core/admin"
	"github.com/kamalshkeir/kadmin/core/orm"
	"github.com/kamalshkeir/kadmin/core/schema"
)

const (
	basePath    = "/admin"
	apiBasePath = "/api/admin"
)

const testSchema = `{
  "definitions": {
    "User": {
      "type": "object",
      "x-table": "users",
      "properties": {
        "id": {"type": "integer"},
        "email": {"type": "string", "format": "email"},
        "name": {"type": ["string", "null"]},
        "role": {"type": "string", "enum": ["USER", "ADMIN"], "default": "USER"},
        "password": {"type": "string", "format": "password"},
        "bio": {"type": ["string", "null"], "format": "html"},
        "active": {"type": "boolean", "default": false},
        "created_at": {"type": "string", "format": "date-time", "readOnly": true},
        "posts": {"type": "array", "items": {"$ref": "#/definitions/Post"}}
      },
      "required": ["email"]
    },
    "Post": {
      "type": "object",
      "x-table": "posts",
      "properties": {
        "id": {"type": "integer"},
        "title": {"type": "string"},
        "published": {"type": "boolean", "default": false},
        "author_id": {"type": ["integer", "null"]},
        "author": {"anyOf": [{"$ref": "#/definitions/User"}, {"type": "null"}]}
      },
      "required": ["title"]
    }
  }
}`

var tables = []string{
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL,
		name TEXT,
		role TEXT NOT NULL DEFAULT 'USER',
		password TEXT,
		bio TEXT,
		active INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		published INTEGER NOT NULL DEFAULT 0,
		author_id INTEGER REFERENCES users(id) ON DELETE SET NULL
	)`,
}

type fixture struct {
	client  *orm.Client
	doc     *schema.Document
	options *admin.Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := "admin_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "admin.sqlite"))
	require.NoError(t, err)
	require.NoError(t, orm.NewDatabaseFromConnection(orm.SQLITE, name, conn))
	t.Cleanup(func() { _ = orm.ShutdownDatabases(name) })
	for _, st := range tables {
		require.NoError(t, orm.Exec(name, st))
	}
	client, err := orm.NewClient(name)
	require.NoError(t, err)
	doc, err := schema.Parse([]byte(testSchema))
	require.NoError(t, err)
	return &fixture{
		client:  client,
		doc:     doc,
		options: &admin.Options{Title: "Test Admin", PerPage: 2},
	}
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, u := range []map[string]any{
		{"email": "alice@example.com", "name": "Alice", "role": "ADMIN", "bio": "<b>bold</b><script>alert(1)</script>"},
		{"email": "bob@example.com", "name": "Bob"},
		{"email": "carol@example.com", "name": "Carol", "active": 1},
	} {
		_, err := f.client.Create(ctx, "users", u)
		require.NoError(t, err)
	}
	for _, p := range []map[string]any{
		{"title": "Hello", "author_id": 1},
		{"title": "World", "author_id": 2, "published": 1},
	} {
		_, err := f.client.Create(ctx, "posts", p)
		require.NoError(t, err)
	}
}

func (f *fixture) params(target string) admin.PropsParams {
	return admin.PropsParams{
		BasePath:    basePath,
		APIBasePath: apiBasePath,
		Client:      f.client,
		Schema:      f.doc,
		Options:     f.options,
		Request:     httptest.NewRequest(http.MethodGet, target, nil),
	}
}
