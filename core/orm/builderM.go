package orm

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/kamalshkeir/kadmin/core/utils/logger"
)

// BuilderM build queries returning rows as maps
type BuilderM struct {
	debug      bool
	noCache    bool
	limit      int
	page       int
	tableName  string
	selected   string
	orderBys   string
	whereQuery string
	statement  string
	database   string
	args       []any
	ctx        context.Context
}

// Table start a query on tableName
func Table(tableName string) *BuilderM {
	return &BuilderM{
		tableName: tableName,
	}
}

func (b *BuilderM) Database(dbName string) *BuilderM {
	b.database = dbName
	return b
}

func (b *BuilderM) Select(columns ...string) *BuilderM {
	b.selected = strings.Join(columns, ",")
	return b
}

// Where set the where clause, '?' placeholders are adapted to the dialect
func (b *BuilderM) Where(query string, args ...any) *BuilderM {
	b.whereQuery = query
	b.args = append(b.args, args...)
	return b
}

func (b *BuilderM) Limit(limit int) *BuilderM {
	b.limit = limit
	return b
}

func (b *BuilderM) Page(pageNumber int) *BuilderM {
	b.page = pageNumber
	return b
}

// OrderBy take fields prefixed by '-' for DESC, '+' or nothing for ASC
func (b *BuilderM) OrderBy(fields ...string) *BuilderM {
	orders := []string{}
	for _, f := range fields {
		switch {
		case f == "":
			continue
		case strings.HasPrefix(f, "+"):
			orders = append(orders, f[1:]+" ASC")
		case strings.HasPrefix(f, "-"):
			orders = append(orders, f[1:]+" DESC")
		default:
			orders = append(orders, f+" ASC")
		}
	}
	if len(orders) > 0 {
		b.orderBys = "ORDER BY " + strings.Join(orders, ",")
	}
	return b
}

func (b *BuilderM) Context(ctx context.Context) *BuilderM {
	b.ctx = ctx
	return b
}

// NoCache read from the database even when UseCache is set
func (b *BuilderM) NoCache() *BuilderM {
	b.noCache = true
	return b
}

func (b *BuilderM) cached() bool {
	return UseCache && !b.noCache
}

func (b *BuilderM) Debug() *BuilderM {
	b.debug = true
	return b
}

func (b *BuilderM) cacheKey() dbCache {
	return dbCache{
		database:   b.database,
		table:      b.tableName,
		selected:   b.selected,
		orderBys:   b.orderBys,
		whereQuery: b.whereQuery,
		limit:      b.limit,
		page:       b.page,
		args:       fmt.Sprint(b.args),
	}
}

func (b *BuilderM) selectStatement() string {
	stat := strings.Builder{}
	if b.selected != "" && b.selected != "*" {
		stat.WriteString("SELECT " + b.selected + " FROM " + b.tableName)
	} else {
		stat.WriteString("SELECT * FROM " + b.tableName)
	}
	if b.whereQuery != "" {
		stat.WriteString(" WHERE " + b.whereQuery)
	}
	if b.orderBys != "" {
		stat.WriteString(" " + b.orderBys)
	}
	if b.limit > 0 {
		stat.WriteString(" LIMIT " + strconv.Itoa(b.limit))
		if b.page > 1 {
			stat.WriteString(" OFFSET " + strconv.Itoa((b.page-1)*b.limit))
		}
	}
	return stat.String()
}

// All return every matching row, an empty slice if none
func (b *BuilderM) All() ([]map[string]any, error) {
	if b.tableName == "" {
		return nil, errors.New("unable to find table, try orm.Table before")
	}
	c := b.cacheKey()
	if b.cached() {
		if v, ok := cachesAllM.Get(c); ok {
			return v, nil
		}
	}
	b.statement = b.selectStatement()
	models, err := b.queryM(b.statement, b.args...)
	if err != nil {
		return nil, err
	}
	if b.cached() {
		cachesAllM.Set(c, models)
	}
	return models, nil
}

// One return the first matching row or ErrNoData
func (b *BuilderM) One() (map[string]any, error) {
	if b.tableName == "" {
		return nil, errors.New("unable to find table, try orm.Table before")
	}
	c := b.cacheKey()
	if b.cached() {
		if v, ok := cachesOneM.Get(c); ok {
			return v, nil
		}
	}
	b.limit = 1
	b.page = 0
	b.statement = b.selectStatement()
	models, err := b.queryM(b.statement, b.args...)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, ErrNoData
	}
	if b.cached() {
		cachesOneM.Set(c, models[0])
	}
	return models[0], nil
}

// Count return the number of matching rows
func (b *BuilderM) Count() (int, error) {
	if b.tableName == "" {
		return 0, errors.New("unable to find table, try orm.Table before")
	}
	b.statement = "SELECT COUNT(*) AS count FROM " + b.tableName
	if b.whereQuery != "" {
		b.statement += " WHERE " + b.whereQuery
	}
	rows, err := b.queryM(b.statement, b.args...)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	switch v := rows[0]["count"].(type) {
	case int64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, errors.Newf("unexpected count type %T", v)
	}
}

// Insert insert one row and return the inserted id when the driver report it
func (b *BuilderM) Insert(fieldsCommaSeparated string, fieldsValues []any) (int, error) {
	if b.tableName == "" {
		return 0, errors.New("unable to find table, try orm.Table before")
	}
	db, err := GetMemoryDatabase(b.database)
	if err != nil {
		return 0, err
	}
	split := strings.Split(fieldsCommaSeparated, ",")
	if len(split) != len(fieldsValues) {
		return 0, errors.New("fields and fields_values doesn't have the same length")
	}
	defer invalidate("create", b.tableName, db.Name)

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(split)), ",")
	statement := "INSERT INTO " + b.tableName + " (" + fieldsCommaSeparated + ") VALUES (" + placeholders + ")"
	adaptPlaceholdersToDialect(&statement, db.Dialect)
	if db.Dialect == POSTGRES {
		pk := GetPrimaryKey(b.tableName, db.Name)
		statement += " RETURNING " + pk
		b.logStatement(statement, fieldsValues)
		var id int
		err := db.Conn.QueryRowContext(b.context(), statement, fieldsValues...).Scan(&id)
		if err != nil {
			return 0, err
		}
		return id, nil
	}
	b.logStatement(statement, fieldsValues)
	res, err := db.Conn.ExecContext(b.context(), statement, fieldsValues...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, nil
	}
	return int(id), nil
}

// Set update matching rows, query is like "a = ?, b = ?"
func (b *BuilderM) Set(query string, args ...any) (int, error) {
	if b.tableName == "" {
		return 0, errors.New("unable to find table, try orm.Table before")
	}
	if b.whereQuery == "" {
		return 0, errors.New("you should use Where before Set")
	}
	db, err := GetMemoryDatabase(b.database)
	if err != nil {
		return 0, err
	}
	defer invalidate("update", b.tableName, db.Name)

	b.statement = "UPDATE " + b.tableName + " SET " + query + " WHERE " + b.whereQuery
	adaptPlaceholdersToDialect(&b.statement, db.Dialect)
	args = append(args, b.args...)
	b.logStatement(b.statement, args)
	res, err := db.Conn.ExecContext(b.context(), b.statement, args...)
	if err != nil {
		return 0, err
	}
	aff, err := res.RowsAffected()
	return int(aff), err
}

// Delete delete matching rows, Where is mandatory
func (b *BuilderM) Delete() (int, error) {
	if b.tableName == "" {
		return 0, errors.New("unable to find table, try orm.Table before")
	}
	if b.whereQuery == "" {
		return 0, errors.New("no Where was given for this delete")
	}
	db, err := GetMemoryDatabase(b.database)
	if err != nil {
		return 0, err
	}
	defer invalidate("delete", b.tableName, db.Name)

	b.statement = "DELETE FROM " + b.tableName + " WHERE " + b.whereQuery
	adaptPlaceholdersToDialect(&b.statement, db.Dialect)
	b.logStatement(b.statement, b.args)
	res, err := db.Conn.ExecContext(b.context(), b.statement, b.args...)
	if err != nil {
		return 0, err
	}
	aff, err := res.RowsAffected()
	return int(aff), err
}

func (b *BuilderM) context() context.Context {
	if b.ctx != nil {
		return b.ctx
	}
	return context.Background()
}

func (b *BuilderM) logStatement(statement string, args []any) {
	if b.debug || Debug {
		logger.Debug("statement:", statement, "args:", args)
	}
}

func (b *BuilderM) queryM(statement string, args ...any) ([]map[string]any, error) {
	db, err := GetMemoryDatabase(b.database)
	if err != nil {
		return nil, err
	}
	adaptPlaceholdersToDialect(&statement, db.Dialect)
	b.logStatement(statement, args)
	rows, err := db.Conn.QueryContext(b.context(), statement, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMaps(rows)
}

// RawQuery run a raw select on dbName and return rows as maps
func RawQuery(ctx context.Context, dbName string, statement string, args ...any) ([]map[string]any, error) {
	db, err := GetMemoryDatabase(dbName)
	if err != nil {
		return nil, err
	}
	adaptPlaceholdersToDialect(&statement, db.Dialect)
	rows, err := db.Conn.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMaps(rows)
}

// Exec run a raw statement on dbName
func Exec(dbName, query string, args ...any) error {
	db, err := GetMemoryDatabase(dbName)
	if err != nil {
		return err
	}
	adaptPlaceholdersToDialect(&query, db.Dialect)
	_, err = db.Conn.Exec(query, args...)
	return err
}

func scanMaps(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	models := make([]any, len(columns))
	modelsPtrs := make([]any, len(columns))
	listMap := make([]map[string]any, 0)
	for rows.Next() {
		for i := range models {
			models[i] = &modelsPtrs[i]
		}
		if err := rows.Scan(models...); err != nil {
			return nil, err
		}
		m := make(map[string]any, len(columns))
		for i := range columns {
			if v, ok := modelsPtrs[i].([]byte); ok {
				modelsPtrs[i] = string(v)
			}
			m[columns[i]] = modelsPtrs[i]
		}
		listMap = append(listMap, m)
	}
	return listMap, rows.Err()
}
