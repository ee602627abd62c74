package prisma_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/kamalshkeir/kadmin/apps/example/prisma"
	"github.com/kamalshkeir/kadmin/core/orm"
)

func TestSchema(t *testing.T) {
	doc, err := prisma.Schema()
	require.NoError(t, err)
	again, err := prisma.Schema()
	require.NoError(t, err)
	assert.Same(t, doc, again)
	assert.Equal(t, []string{"User", "Post"}, doc.ModelNames())

	post, ok := doc.Model("post")
	require.True(t, ok)
	assert.Equal(t, "posts", post.Table)
	author, ok := post.Field("author")
	require.True(t, ok)
	assert.Equal(t, "User", author.Relation)
}

// the embedded document describe the migrated tables
func TestSchemaMatchTables(t *testing.T) {
	conn, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "prisma.sqlite"))
	require.NoError(t, err)
	require.NoError(t, orm.NewDatabaseFromConnection(orm.SQLITE, "prisma", conn))
	t.Cleanup(func() { _ = orm.ShutdownDatabases("prisma") })
	require.NoError(t, prisma.Migrate("prisma"))

	doc, err := prisma.Schema()
	require.NoError(t, err)
	for _, m := range doc.Models {
		cols := []string{}
		for c := range orm.GetAllColumnsTypes(m.Table, "prisma") {
			cols = append(cols, c)
		}
		fields := []string{}
		for _, f := range m.ScalarFields() {
			fields = append(fields, f.Name)
		}
		sort.Strings(cols)
		sort.Strings(fields)
		assert.Equal(t, cols, fields, m.Name)
	}

	client, err := prisma.Client()
	require.NoError(t, err)
	same, err := prisma.Client()
	require.NoError(t, err)
	assert.Same(t, client, same)

	require.NoError(t, orm.CreateUser("author@example.com", "pw", false, "prisma"))
	id, err := client.Create(context.Background(), "posts", map[string]any{"title": "First", "author_id": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, id)
}
