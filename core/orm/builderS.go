package orm

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

var mModelTablename = map[reflect.Type]string{}

// Builder build queries returning rows as T, T must be migrated or linked before
type Builder[T any] struct {
	m *BuilderM
}

// Model start a query on the table linked to T
func Model[T any]() *Builder[T] {
	return &Builder[T]{m: Table(getTableName[T]())}
}

func getTableName[T any]() string {
	dbMu.RLock()
	defer dbMu.RUnlock()
	return mModelTablename[reflect.TypeOf(*new(T))]
}

// LinkModel link T to an existing table
func LinkModel[T any](tableName string) {
	dbMu.Lock()
	mModelTablename[reflect.TypeOf(*new(T))] = tableName
	dbMu.Unlock()
}

func (b *Builder[T]) Database(dbName string) *Builder[T] {
	b.m.Database(dbName)
	return b
}

func (b *Builder[T]) Where(query string, args ...any) *Builder[T] {
	b.m.Where(query, args...)
	return b
}

func (b *Builder[T]) OrderBy(fields ...string) *Builder[T] {
	b.m.OrderBy(fields...)
	return b
}

func (b *Builder[T]) Limit(limit int) *Builder[T] {
	b.m.Limit(limit)
	return b
}

func (b *Builder[T]) NoCache() *Builder[T] {
	b.m.NoCache()
	return b
}

func (b *Builder[T]) Context(ctx context.Context) *Builder[T] {
	b.m.Context(ctx)
	return b
}

// One return the first matching row as T or ErrNoData
func (b *Builder[T]) One() (T, error) {
	var t T
	if b.m.tableName == "" {
		return t, errors.Newf("model %T not migrated nor linked", t)
	}
	row, err := b.m.One()
	if err != nil {
		return t, err
	}
	err = fillStruct(&t, row)
	return t, err
}

// All return every matching row as T
func (b *Builder[T]) All() ([]T, error) {
	if b.m.tableName == "" {
		return nil, errors.Newf("model %T not migrated nor linked", *new(T))
	}
	rows, err := b.m.All()
	if err != nil {
		return nil, err
	}
	res := make([]T, 0, len(rows))
	for _, row := range rows {
		var t T
		if err := fillStruct(&t, row); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

// Insert insert model skipping autoinc primary keys and zero 'now' fields
func (b *Builder[T]) Insert(model *T) (int, error) {
	if b.m.tableName == "" {
		return 0, errors.Newf("model %T not migrated nor linked", *model)
	}
	rv := reflect.ValueOf(model).Elem()
	rt := rv.Type()
	names := []string{}
	values := []any{}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		tags := strings.Split(sf.Tag.Get("orm"), ";")
		fv := rv.Field(i)
		if hasTag(tags, "pk") || hasTag(tags, "autoinc") || hasTag(tags, "-") {
			if fv.IsZero() {
				continue
			}
		}
		if hasTag(tags, "now") && fv.IsZero() {
			continue
		}
		v := fv.Interface()
		switch tv := v.(type) {
		case bool:
			if tv {
				v = 1
			} else {
				v = 0
			}
		case time.Time:
			v = tv.UTC()
		}
		names = append(names, ToSnakeCase(sf.Name))
		values = append(values, v)
	}
	return b.m.Insert(strings.Join(names, ","), values)
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.TrimSpace(t) == tag {
			return true
		}
	}
	return false
}
