// Package schema decode and generate the JSON-Schema document describing the admin models.
package schema

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/getkin/kin-openapi/openapi3"
)

const (
	TableExtension      = "x-table"
	PrimaryKeyExtension = "x-primary-key"
	definitionsPrefix   = "#/definitions/"
)

var ErrInvalidDocument = errors.New("invalid schema document")

// Document is the parsed schema, models keep the order of the source document
type Document struct {
	Models []*Model
	byName map[string]*Model
}

type Model struct {
	Name       string
	Table      string
	PrimaryKey string
	Fields     []Field
}

type Field struct {
	Name        string
	Type        string
	Format      string
	Description string
	Enum        []string
	Nullable    bool
	Required    bool
	ReadOnly    bool
	// Relation is the target model name for reference fields
	Relation string
	List     bool
	Default  any
}

// IsScalar report whether the field is stored in a column of the model table
func (f Field) IsScalar() bool {
	return f.Relation == "" && !f.List
}

func (f Field) IsString() bool {
	return f.Type == "string"
}

type rawDocument struct {
	Schema      string                          `json:"$schema,omitempty"`
	Definitions map[string]*openapi3.SchemaRef `json:"definitions"`
}

// Parse decode a JSON-Schema document whose definitions are keyed by model name
func Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.Wrap(ErrInvalidDocument, "empty document")
	}
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(ErrInvalidDocument, "decode schema: %v", err)
	}
	if len(raw.Definitions) == 0 {
		return nil, errors.Wrap(ErrInvalidDocument, "no definitions")
	}
	order, err := keyOrder(data)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidDocument, "decode schema: %v", err)
	}

	doc := &Document{byName: map[string]*Model{}}
	for _, name := range order.models {
		ref := raw.Definitions[name]
		if ref == nil || ref.Value == nil || len(ref.Value.Properties) == 0 {
			return nil, errors.Wrapf(ErrInvalidDocument, "definition %s has no properties", name)
		}
		m, err := convertModel(name, ref.Value, order.fields[name], raw.Definitions)
		if err != nil {
			return nil, err
		}
		doc.Models = append(doc.Models, m)
		doc.byName[strings.ToLower(name)] = m
	}
	return doc, nil
}

func convertModel(name string, s *openapi3.Schema, fieldOrder []string, defs map[string]*openapi3.SchemaRef) (*Model, error) {
	m := &Model{
		Name:       name,
		Table:      stringExtension(s.Extensions, TableExtension),
		PrimaryKey: stringExtension(s.Extensions, PrimaryKeyExtension),
	}
	if m.Table == "" {
		m.Table = strings.ToLower(name) + "s"
	}
	if m.PrimaryKey == "" {
		m.PrimaryKey = "id"
	}
	required := map[string]bool{}
	for _, r := range s.Required {
		required[r] = true
	}
	for _, fname := range fieldOrder {
		prop := s.Properties[fname]
		if prop == nil {
			continue
		}
		f, err := convertField(fname, prop, defs)
		if err != nil {
			return nil, errors.Wrapf(err, "model %s", name)
		}
		f.Required = required[fname]
		m.Fields = append(m.Fields, f)
	}
	if _, ok := m.Field(m.PrimaryKey); !ok {
		return nil, errors.Wrapf(ErrInvalidDocument, "model %s has no primary key field %q", name, m.PrimaryKey)
	}
	return m, nil
}

func convertField(name string, ref *openapi3.SchemaRef, defs map[string]*openapi3.SchemaRef) (Field, error) {
	f := Field{Name: name}
	if ref.Ref != "" {
		target, err := resolveRef(ref.Ref, defs)
		if err != nil {
			return f, err
		}
		f.Relation = target
		return f, nil
	}
	s := ref.Value
	if s == nil {
		return f, errors.Wrapf(ErrInvalidDocument, "field %s has no schema", name)
	}
	for _, t := range typesOf(s.Type) {
		if t == "null" {
			f.Nullable = true
			continue
		}
		if f.Type == "" {
			f.Type = t
		}
	}
	f.Nullable = f.Nullable || s.Nullable
	f.Format = s.Format
	f.Description = s.Description
	f.ReadOnly = s.ReadOnly
	f.Default = s.Default
	for _, e := range s.Enum {
		if v, ok := e.(string); ok {
			f.Enum = append(f.Enum, v)
		}
	}
	if f.Type == "array" {
		f.List = true
		if s.Items != nil && s.Items.Ref != "" {
			target, err := resolveRef(s.Items.Ref, defs)
			if err != nil {
				return f, err
			}
			f.Relation = target
		}
	}
	if f.Type == "" && len(s.AnyOf) > 0 {
		// prisma emits optional relations as anyOf [$ref, null]
		for _, alt := range s.AnyOf {
			if alt.Ref != "" {
				target, err := resolveRef(alt.Ref, defs)
				if err != nil {
					return f, err
				}
				f.Relation = target
			} else if alt.Value != nil && contains(typesOf(alt.Value.Type), "null") {
				f.Nullable = true
			}
		}
	}
	return f, nil
}

func resolveRef(ref string, defs map[string]*openapi3.SchemaRef) (string, error) {
	target := strings.TrimPrefix(ref, definitionsPrefix)
	if target == ref || defs[target] == nil {
		return "", errors.Wrapf(ErrInvalidDocument, "unresolvable $ref %q", ref)
	}
	return target, nil
}

func typesOf(t *openapi3.Types) []string {
	if t == nil {
		return nil
	}
	return t.Slice()
}

func contains(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

func stringExtension(ext map[string]any, key string) string {
	if v, ok := ext[key].(string); ok {
		return v
	}
	return ""
}

// Model return the model named name, case insensitive
func (d *Document) Model(name string) (*Model, bool) {
	m, ok := d.byName[strings.ToLower(name)]
	return m, ok
}

// ModelNames return model names in document order
func (d *Document) ModelNames() []string {
	names := make([]string, len(d.Models))
	for i, m := range d.Models {
		names[i] = m.Name
	}
	return names
}

// Slug is the url segment of the model
func (m *Model) Slug() string {
	return strings.ToLower(m.Name)
}

func (m *Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ScalarFields return the fields stored in the model table
func (m *Model) ScalarFields() []Field {
	res := make([]Field, 0, len(m.Fields))
	for _, f := range m.Fields {
		if f.IsScalar() {
			res = append(res, f)
		}
	}
	return res
}

// StringFields return scalar fields of type string, used as default search fields
func (m *Model) StringFields() []string {
	res := []string{}
	for _, f := range m.ScalarFields() {
		if f.IsString() && f.Format != "password" && f.Format != "date-time" {
			res = append(res, f.Name)
		}
	}
	return res
}

type documentOrder struct {
	models []string
	fields map[string][]string
}

// keyOrder read definition and property names in source order, openapi3 maps lose it
func keyOrder(data []byte) (documentOrder, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return documentOrder{}, err
	}
	order := documentOrder{fields: map[string][]string{}}
	models, err := objectKeys(top["definitions"])
	if err != nil {
		return order, err
	}
	var defs map[string]struct {
		Properties json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(top["definitions"], &defs); err != nil {
		return order, err
	}
	order.models = models
	for _, m := range models {
		fields, err := objectKeys(defs[m].Properties)
		if err != nil {
			return order, err
		}
		order.fields[m] = fields
	}
	return order, nil
}

func objectKeys(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected an object")
	}
	keys := []string{}
	seen := map[string]bool{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
