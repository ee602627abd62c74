package admin

import (
	"context"

	"github.com/kamalshkeir/kadmin/core/orm"
)

// Client is the data access used by the panel, *orm.Client implement it
type Client interface {
	FindMany(ctx context.Context, table string, q orm.Query) ([]map[string]any, error)
	Count(ctx context.Context, table string, q orm.Query) (int, error)
	FindOne(ctx context.Context, table, pk string, id any) (map[string]any, error)
	Create(ctx context.Context, table string, data map[string]any) (int, error)
	Update(ctx context.Context, table, pk string, id any, data map[string]any) (int, error)
	Delete(ctx context.Context, table, pk string, ids ...any) (int, error)
}

var _ Client = (*orm.Client)(nil)
