package orm

import (
	"context"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Query describe a list query over one table
type Query struct {
	Search       string
	SearchFields []string
	// OrderBy field name, prefixed by '-' for DESC
	OrderBy string
	Limit   int
	Page    int
}

// Client give access to one registered database, it is safe for concurrent use
type Client struct {
	dbName string
}

// NewClient return a client bound to dbName, default database if empty
func NewClient(dbName string) (*Client, error) {
	db, err := GetMemoryDatabase(dbName)
	if err != nil {
		return nil, err
	}
	return &Client{dbName: db.Name}, nil
}

func (c *Client) Database() string {
	return c.dbName
}

func checkIdents(idents ...string) error {
	for _, id := range idents {
		if !IsIdentifier(id) {
			return errors.Newf("invalid identifier %q", id)
		}
	}
	return nil
}

func (q Query) where() (string, []any, error) {
	if q.Search == "" || len(q.SearchFields) == 0 {
		return "", nil, nil
	}
	if err := checkIdents(q.SearchFields...); err != nil {
		return "", nil, err
	}
	conds := make([]string, 0, len(q.SearchFields))
	args := make([]any, 0, len(q.SearchFields))
	for _, f := range q.SearchFields {
		conds = append(conds, "LOWER("+f+") LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Search)+"%")
	}
	return "(" + strings.Join(conds, " OR ") + ")", args, nil
}

// FindMany return the rows of table matching q
func (c *Client) FindMany(ctx context.Context, table string, q Query) ([]map[string]any, error) {
	if err := checkIdents(table); err != nil {
		return nil, err
	}
	b := Table(table).Database(c.dbName).Context(ctx).NoCache()
	where, args, err := q.where()
	if err != nil {
		return nil, err
	}
	if where != "" {
		b.Where(where, args...)
	}
	if q.OrderBy != "" {
		if err := checkIdents(strings.TrimLeft(q.OrderBy, "+-")); err != nil {
			return nil, err
		}
		b.OrderBy(q.OrderBy)
	}
	if q.Limit > 0 {
		b.Limit(q.Limit).Page(q.Page)
	}
	rows, err := b.All()
	if err != nil {
		return nil, errors.Wrapf(err, "find many %s", table)
	}
	return copyRows(rows), nil
}

// Count return the number of rows of table matching q, Limit and Page are ignored
func (c *Client) Count(ctx context.Context, table string, q Query) (int, error) {
	if err := checkIdents(table); err != nil {
		return 0, err
	}
	b := Table(table).Database(c.dbName).Context(ctx).NoCache()
	where, args, err := q.where()
	if err != nil {
		return 0, err
	}
	if where != "" {
		b.Where(where, args...)
	}
	n, err := b.Count()
	if err != nil {
		return 0, errors.Wrapf(err, "count %s", table)
	}
	return n, nil
}

// FindOne return the row where pk = id or ErrNoData
func (c *Client) FindOne(ctx context.Context, table, pk string, id any) (map[string]any, error) {
	if err := checkIdents(table, pk); err != nil {
		return nil, err
	}
	row, err := Table(table).Database(c.dbName).Context(ctx).NoCache().Where(pk+" = ?", id).One()
	if err != nil {
		return nil, err
	}
	return copyRow(row), nil
}

// Create insert data into table and return the new id when available
func (c *Client) Create(ctx context.Context, table string, data map[string]any) (int, error) {
	if len(data) == 0 {
		return 0, errors.New("nothing to create")
	}
	keys := sortedKeys(data)
	if err := checkIdents(append(keys, table)...); err != nil {
		return 0, err
	}
	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = data[k]
	}
	return Table(table).Database(c.dbName).Context(ctx).NoCache().Insert(strings.Join(keys, ","), values)
}

// Update set data on the row where pk = id and return the number of affected rows
func (c *Client) Update(ctx context.Context, table, pk string, id any, data map[string]any) (int, error) {
	if len(data) == 0 {
		return 0, errors.New("nothing to update")
	}
	keys := sortedKeys(data)
	if err := checkIdents(append(keys, table, pk)...); err != nil {
		return 0, err
	}
	sets := make([]string, len(keys))
	values := make([]any, len(keys))
	for i, k := range keys {
		sets[i] = k + " = ?"
		values[i] = data[k]
	}
	return Table(table).Database(c.dbName).Context(ctx).NoCache().Where(pk+" = ?", id).Set(strings.Join(sets, ", "), values...)
}

// Delete delete rows where pk in ids
func (c *Client) Delete(ctx context.Context, table, pk string, ids ...any) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := checkIdents(table, pk); err != nil {
		return 0, err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	return Table(table).Database(c.dbName).Context(ctx).NoCache().Where(pk+" IN ("+placeholders+")", ids...).Delete()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyRow(row map[string]any) map[string]any {
	m := make(map[string]any, len(row))
	for k, v := range row {
		m[k] = v
	}
	return m
}

func copyRows(rows []map[string]any) []map[string]any {
	res := make([]map[string]any, len(rows))
	for i, r := range rows {
		res[i] = copyRow(r)
	}
	return res
}
