package schema

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kamalshkeir/kadmin/core/orm"
)

const jsonSchemaDraft = "http://json-schema.org/draft-07/schema#"

// Generate introspect every table of dbName and emit a schema document
func Generate(ctx context.Context, dbName string) ([]byte, error) {
	db, err := orm.GetMemoryDatabase(dbName)
	if err != nil {
		return nil, err
	}
	tables := orm.GetAllTables(db.Name)
	if len(tables) == 0 {
		return nil, errors.Newf("no tables found in %s", db.Name)
	}
	doc := rawDocument{
		Schema:      jsonSchemaDraft,
		Definitions: map[string]*openapi3.SchemaRef{},
	}
	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cols := orm.GetAllColumnsTypes(table, db.Name)
		if len(cols) == 0 {
			continue
		}
		pk := orm.GetPrimaryKey(table, db.Name)
		modelTypes := map[string]string{}
		if tb, err := orm.GetMemoryTable(table, db.Name); err == nil {
			modelTypes = tb.ModelTypes
		}
		s := openapi3.NewObjectSchema()
		s.Extensions = map[string]any{
			TableExtension:      table,
			PrimaryKeyExtension: pk,
		}
		for _, col := range sortedKeys(cols) {
			prop := columnSchema(col, cols[col], modelTypes[col])
			if col == pk {
				prop.ReadOnly = true
			}
			s.WithPropertyRef(col, openapi3.NewSchemaRef("", prop))
		}
		doc.Definitions[ModelName(table)] = openapi3.NewSchemaRef("", s)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ModelName derive a model name from a table name, users -> User
func ModelName(table string) string {
	name := strings.TrimSuffix(table, "s")
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

func columnSchema(col, sqlType, goType string) *openapi3.Schema {
	t := strings.ToUpper(sqlType)
	switch {
	case goType == "bool" || strings.HasPrefix(t, "BOOL"):
		return openapi3.NewBoolSchema()
	case strings.Contains(t, "INT") || t == "SERIAL":
		return openapi3.NewIntegerSchema()
	case strings.Contains(t, "REAL") || strings.Contains(t, "DOUBLE") || strings.Contains(t, "FLOAT") ||
		strings.Contains(t, "NUMERIC") || strings.Contains(t, "DECIMAL"):
		return openapi3.NewFloat64Schema()
	case strings.Contains(t, "TIME") || strings.Contains(t, "DATE"):
		return openapi3.NewDateTimeSchema()
	}
	s := openapi3.NewStringSchema()
	switch col {
	case "password":
		s.Format = "password"
	case "uuid":
		s.Format = "uuid"
	case "email":
		s.Format = "email"
	}
	return s
}
