// Package prisma hold the database client and the schema document of the example app
package prisma

import (
	_ "embed"
	"sync"
	"time"

	"github.com/kamalshkeir/kadmin/core/admin/models"
	"github.com/kamalshkeir/kadmin/core/orm"
	"github.com/kamalshkeir/kadmin/core/schema"
)

//go:embed json-schema/json-schema.json
var jsonSchema []byte

type Post struct {
	Id        int       `json:"id" orm:"pk"`
	Title     string    `json:"title" orm:"size:200;notnull"`
	Content   string    `json:"content" orm:"text"`
	Published bool      `json:"published" orm:"default:0"`
	AuthorId  int       `json:"author_id" orm:"fk:users.id:cascade"`
	CreatedAt time.Time `json:"created_at" orm:"now"`
}

var (
	mu     sync.Mutex
	client *orm.Client

	schemaOnce sync.Once
	doc        *schema.Document
	docErr     error
)

// Migrate create the tables described by the schema document
func Migrate(dbName ...string) error {
	if err := orm.AutoMigrate[models.User]("users", dbName...); err != nil {
		return err
	}
	return orm.AutoMigrate[Post]("posts", dbName...)
}

// Client return the client of the default database, it is created on first success and shared
func Client() (*orm.Client, error) {
	mu.Lock()
	defer mu.Unlock()
	if client != nil {
		return client, nil
	}
	c, err := orm.NewClient(orm.DefaultDB)
	if err != nil {
		return nil, err
	}
	client = c
	return client, nil
}

// Schema return the parsed json-schema document
func Schema() (*schema.Document, error) {
	schemaOnce.Do(func() {
		doc, docErr = schema.Parse(jsonSchema)
	})
	return doc, docErr
}

// JSONSchema return the raw embedded document
func JSONSchema() []byte {
	return jsonSchema
}
