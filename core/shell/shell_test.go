package shell_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/kamalshkeir/kadmin/core/orm"
	"github.com/kamalshkeir/kadmin/core/shell"
)

func newDB(t *testing.T) string {
	t.Helper()
	name := "shell_" + t.Name()
	conn, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "shell.sqlite"))
	require.NoError(t, err)
	require.NoError(t, orm.NewDatabaseFromConnection(orm.SQLITE, name, conn))
	t.Cleanup(func() { _ = orm.ShutdownDatabases(name) })
	return name
}

func TestRunUnknownArgs(t *testing.T) {
	var out bytes.Buffer
	s := shell.New(strings.NewReader(""), &out)
	assert.False(t, s.Run(nil))
	assert.False(t, s.Run([]string{"runserver"}))
	assert.True(t, s.Run([]string{"help"}))
	assert.Contains(t, out.String(), "createsuperuser")
	assert.True(t, strings.HasSuffix(out.String(), "database to a file\n"), out.String())
}

func TestInteractiveSession(t *testing.T) {
	db := newDB(t)
	script := strings.Join([]string{
		"migrate",
		"createsuperuser", "root@example.com", "toor",
		"createuser", "guest@example.com", "guest",
		"tables",
		"columns", "users",
		"get", "users", "email", "guest@example.com",
		"delete", "users", "email", "guest@example.com",
		"columns", "",
		"bogus",
		"quit",
		"tables",
	}, "\n") + "\n"
	var out bytes.Buffer
	s := shell.New(strings.NewReader(script), &out)
	s.DB = db
	require.True(t, s.Run([]string{"shell"}))

	got := out.String()
	assert.Contains(t, got, "users table migrated successfully")
	assert.Contains(t, got, "User root@example.com created successfully")
	assert.Contains(t, got, "is_admin\t")
	assert.Contains(t, got, `"email": "guest@example.com"`)
	assert.Contains(t, got, "1 rows deleted from users")
	assert.Contains(t, got, "command not handled")

	rows, err := orm.Table("users").Database(db).All()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "root@example.com", rows[0]["email"])
	assert.EqualValues(t, 1, rows[0]["is_admin"])
}

func TestSchemaCommand(t *testing.T) {
	db := newDB(t)
	s := shell.New(strings.NewReader(""), &bytes.Buffer{})
	s.DB = db
	require.NoError(t, orm.Exec(db, `CREATE TABLE blog_posts (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT NOT NULL)`))

	out := filepath.Join(t.TempDir(), "schema.json")
	require.True(t, s.Run([]string{"schema", out}))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc struct {
		Definitions map[string]json.RawMessage `json:"definitions"`
	}
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Contains(t, doc.Definitions, "BlogPost")
}
