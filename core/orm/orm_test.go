package orm_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamalshkeir/kadmin/core/admin/models"
	"github.com/kamalshkeir/kadmin/core/orm"
)

type Post struct {
	Id        int       `orm:"pk"`
	Title     string    `orm:"size:100"`
	Body      string    `orm:"text"`
	Published bool      `orm:"default:0"`
	AuthorId  int       `orm:"fk:users.id:cascade"`
	CreatedAt time.Time `orm:"now"`
}

func newTestDB(t *testing.T) string {
	t.Helper()
	name := "test_" + filepath.Base(t.Name())
	conn, err := sql.Open("sqlite", filepath.Join(t.TempDir(), name+".sqlite"))
	require.NoError(t, err)
	require.NoError(t, orm.NewDatabaseFromConnection(orm.SQLITE, name, conn))
	t.Cleanup(func() {
		_ = orm.ShutdownDatabases(name)
	})
	require.NoError(t, orm.AutoMigrate[models.User]("users", name))
	require.NoError(t, orm.AutoMigrate[Post]("posts", name))
	return name
}

func TestRegisterTwice(t *testing.T) {
	name := newTestDB(t)
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer conn.Close()
	err = orm.NewDatabaseFromConnection(orm.SQLITE, name, conn)
	assert.Error(t, err)
}

func TestGetMemoryDatabaseNotFound(t *testing.T) {
	_, err := orm.GetMemoryDatabase("does-not-exist")
	assert.ErrorIs(t, err, orm.ErrDatabaseNotFound)
}

func TestMigrateAndIntrospect(t *testing.T) {
	name := newTestDB(t)
	tables := orm.GetAllTables(name)
	assert.Contains(t, tables, "users")
	assert.Contains(t, tables, "posts")

	cols := orm.GetAllColumnsTypes("posts", name)
	assert.Equal(t, "INTEGER", cols["id"])
	assert.Equal(t, "VARCHAR(100)", cols["title"])
	assert.Equal(t, "TIMESTAMP", cols["created_at"])

	assert.Equal(t, "id", orm.GetPrimaryKey("posts", name))
	tb, err := orm.GetMemoryTable("posts", name)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "title", "body", "published", "author_id", "created_at"}, tb.Columns)
}

func TestBuilderM(t *testing.T) {
	name := newTestDB(t)
	require.NoError(t, orm.CreateUser("a@example.com", "secret", true, name))

	users, err := orm.Table("users").Database(name).All()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "a@example.com", users[0]["email"])
	assert.NotEqual(t, "secret", users[0]["password"])

	id, err := orm.Table("posts").Database(name).Insert("title,author_id", []any{"first", users[0]["id"]})
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	_, err = orm.Table("posts").Database(name).Insert("title,author_id", []any{"second", users[0]["id"]})
	require.NoError(t, err)

	n, err := orm.Table("posts").Database(name).Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := orm.Table("posts").Database(name).OrderBy("-id").All()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "second", rows[0]["title"])

	aff, err := orm.Table("posts").Database(name).Where("id = ?", 1).Set("title = ?", "updated")
	require.NoError(t, err)
	assert.Equal(t, 1, aff)

	// the cache must not serve the row read before the update
	row, err := orm.Table("posts").Database(name).Where("id = ?", 1).One()
	require.NoError(t, err)
	assert.Equal(t, "updated", row["title"])

	_, err = orm.Table("posts").Database(name).Delete()
	assert.Error(t, err)

	aff, err = orm.Table("posts").Database(name).Where("id = ?", 2).Delete()
	require.NoError(t, err)
	assert.Equal(t, 1, aff)

	_, err = orm.Table("posts").Database(name).Where("id = ?", 2).One()
	assert.ErrorIs(t, err, orm.ErrNoData)

	empty, err := orm.Table("posts").Database(name).Where("id > ?", 100).All()
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestModelBuilder(t *testing.T) {
	name := newTestDB(t)
	require.NoError(t, orm.CreateUser("b@example.com", "secret", false, name))

	_, err := orm.Model[Post]().Database(name).Insert(&Post{Title: "typed", AuthorId: 1, Published: true})
	require.NoError(t, err)

	p, err := orm.Model[Post]().Database(name).Where("title = ?", "typed").One()
	require.NoError(t, err)
	assert.Equal(t, "typed", p.Title)
	assert.True(t, p.Published)
	assert.False(t, p.CreatedAt.IsZero())

	u, err := orm.Model[models.User]().Database(name).Where("email = ?", "b@example.com").One()
	require.NoError(t, err)
	assert.False(t, u.IsAdmin)
	assert.NotEmpty(t, u.Uuid)
}

func TestClient(t *testing.T) {
	name := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, orm.CreateUser("c@example.com", "secret", false, name))

	c, err := orm.NewClient(name)
	require.NoError(t, err)
	for _, title := range []string{"Go tips", "Rust tips", "go modules"} {
		_, err := c.Create(ctx, "posts", map[string]any{"title": title, "author_id": 1})
		require.NoError(t, err)
	}

	q := orm.Query{Search: "GO", SearchFields: []string{"title"}, OrderBy: "title"}
	rows, err := c.FindMany(ctx, "posts", q)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	n, err := c.Count(ctx, "posts", q)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	page2, err := c.FindMany(ctx, "posts", orm.Query{OrderBy: "id", Limit: 2, Page: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "go modules", page2[0]["title"])

	// returned rows are copies
	page2[0]["title"] = "mutated"
	again, err := c.FindMany(ctx, "posts", orm.Query{OrderBy: "id", Limit: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, "go modules", again[0]["title"])

	aff, err := c.Update(ctx, "posts", "id", 1, map[string]any{"title": "Go tricks"})
	require.NoError(t, err)
	assert.Equal(t, 1, aff)
	row, err := c.FindOne(ctx, "posts", "id", 1)
	require.NoError(t, err)
	assert.Equal(t, "Go tricks", row["title"])

	aff, err = c.Delete(ctx, "posts", "id", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, aff)

	_, err = c.FindMany(ctx, "posts; DROP TABLE users", orm.Query{})
	assert.Error(t, err)
	_, err = c.FindMany(ctx, "posts", orm.Query{OrderBy: "title desc"})
	assert.Error(t, err)
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "author_id", orm.ToSnakeCase("AuthorId"))
	assert.Equal(t, "created_at", orm.ToSnakeCase("CreatedAt"))
	assert.Equal(t, "Created At", orm.SnakeCaseToTitle("created_at"))
}

// rows written by another connection are visible to the client and to the session lookup
func TestClientSeesExternalWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.sqlite")
	conn, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	require.NoError(t, orm.NewDatabaseFromConnection(orm.SQLITE, "shared", conn))
	t.Cleanup(func() { _ = orm.ShutdownDatabases("shared") })
	require.NoError(t, orm.AutoMigrate[models.User]("users", "shared"))
	require.NoError(t, orm.AutoMigrate[Post]("posts", "shared"))
	require.NoError(t, orm.CreateUser("a@example.com", "secret", false, "shared"))

	c, err := orm.NewClient("shared")
	require.NoError(t, err)
	_, err = c.Create(ctx, "posts", map[string]any{"title": "first", "author_id": 1})
	require.NoError(t, err)
	rows, err := c.FindMany(ctx, "posts", orm.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	_, err = c.FindOne(ctx, "posts", "id", 1)
	require.NoError(t, err)

	other, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer other.Close()
	_, err = other.Exec(`INSERT INTO posts (title, author_id) VALUES ('second', 1)`)
	require.NoError(t, err)
	_, err = other.Exec(`UPDATE posts SET title = 'edited' WHERE id = 1`)
	require.NoError(t, err)

	n, err := c.Count(ctx, "posts", orm.Query{})
	require.NoError(t, err)
	rows, err = c.FindMany(ctx, "posts", orm.Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, rows, n)
	row, err := c.FindOne(ctx, "posts", "id", 1)
	require.NoError(t, err)
	assert.Equal(t, "edited", row["title"])

	_, err = orm.Model[models.User]().Database("shared").NoCache().Where("email = ?", "a@example.com").One()
	require.NoError(t, err)
	_, err = other.Exec(`DELETE FROM users WHERE email = 'a@example.com'`)
	require.NoError(t, err)
	_, err = orm.Model[models.User]().Database("shared").NoCache().Where("email = ?", "a@example.com").One()
	assert.ErrorIs(t, err, orm.ErrNoData)
}

func TestRawQuery(t *testing.T) {
	name := newTestDB(t)
	require.NoError(t, orm.CreateUser("raw@example.com", "secret", true, name))
	rows, err := orm.RawQuery(context.Background(), name, "SELECT email FROM users WHERE is_admin = ?", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "raw@example.com", rows[0]["email"])
}
