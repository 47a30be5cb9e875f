package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db"
	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
)

// WriteHook runs inside the write transaction; returning an error rolls the write back.
type WriteHook[T any] func(ctx context.Context, tx *gorm.DB, row *T) error

// Hooks attach storage-internal side effects to a collection.
type Hooks[T any] struct {
	// BeforeUpdate sees the database as it was before row is written.
	BeforeUpdate WriteHook[T]
	AfterInsert  WriteHook[T]
	// Committed runs after a successful insert commit. Failures are the hook's problem.
	Committed func(ctx context.Context, row T)
}

// Collection is one table of the ledger store.
type Collection[T any] struct {
	db    *gorm.DB
	name  string
	order []string
	hooks Hooks[T]
}

func newCollection[T any](conn *gorm.DB, name string, order []string, hooks Hooks[T]) *Collection[T] {
	return &Collection[T]{db: conn, name: name, order: order, hooks: hooks}
}

// List returns every row in the collection's canonical order.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	return c.list(ctx, nil)
}

// ListBy returns rows whose column equals value, in canonical order.
func (c *Collection[T]) ListBy(ctx context.Context, column string, value any) ([]T, error) {
	return c.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where(column+" = ?", value)
	})
}

func (c *Collection[T]) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]T, error) {
	q := c.db.WithContext(ctx)
	if scope != nil {
		q = scope(q)
	}
	for _, clause := range c.order {
		q = q.Order(clause)
	}
	rows := []T{}
	if err := q.Find(&rows).Error; err != nil {
		return nil, c.mapErr(err, "list")
	}
	return rows, nil
}

func (c *Collection[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	var row T
	if err := c.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, c.mapErr(err, "get")
	}
	return &row, nil
}

// Insert persists row; a nil id is assigned by the model's create hook.
func (c *Collection[T]) Insert(ctx context.Context, row *T) error {
	if row == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, c.name+" row is required")
	}
	err := c.write(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		if c.hooks.AfterInsert != nil {
			return c.hooks.AfterInsert(ctx, tx, row)
		}
		return nil
	}, c.hooks.AfterInsert != nil)
	if err != nil {
		return c.mapErr(err, "insert")
	}
	if c.hooks.Committed != nil {
		c.hooks.Committed(ctx, *row)
	}
	return nil
}

// Update overwrites every column of an existing row except created_at.
func (c *Collection[T]) Update(ctx context.Context, row *T) error {
	if row == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, c.name+" row is required")
	}
	err := c.write(ctx, func(tx *gorm.DB) error {
		if c.hooks.BeforeUpdate != nil {
			if err := c.hooks.BeforeUpdate(ctx, tx, row); err != nil {
				return err
			}
		}
		res := tx.Model(row).Select("*").Omit("created_at").Updates(row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	}, c.hooks.BeforeUpdate != nil)
	if err != nil {
		return c.mapErr(err, "update")
	}
	return nil
}

// Patch writes only the named columns and returns the row as stored afterwards.
// Update hooks do not run.
func (c *Collection[T]) Patch(ctx context.Context, id uuid.UUID, columns map[string]any) (*T, error) {
	if len(columns) == 0 {
		return c.Get(ctx, id)
	}
	res := c.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return nil, c.mapErr(res.Error, "patch")
	}
	if res.RowsAffected == 0 {
		return nil, c.mapErr(gorm.ErrRecordNotFound, "patch")
	}
	return c.Get(ctx, id)
}

// Increment adds delta to a numeric column in a single statement and returns the row as
// stored afterwards. With a floor the write only happens while the column stays at or above
// it; applied is false when the floor blocked the write. Update hooks do not run.
func (c *Collection[T]) Increment(ctx context.Context, id uuid.UUID, column string, delta decimal.Decimal, floor *decimal.Decimal) (row *T, applied bool, err error) {
	q := c.db.WithContext(ctx).Model(new(T)).Where("id = ?", id)
	if floor != nil {
		q = q.Where(column+" >= ?", floor.Sub(delta))
	}
	res := q.Updates(map[string]any{column: gorm.Expr(column+" + ?", delta)})
	if res.Error != nil {
		return nil, false, c.mapErr(res.Error, "increment")
	}
	row, err = c.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return row, res.RowsAffected > 0, nil
}

func (c *Collection[T]) Delete(ctx context.Context, id uuid.UUID) error {
	res := c.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return c.mapErr(res.Error, "delete")
	}
	if res.RowsAffected == 0 {
		return c.mapErr(gorm.ErrRecordNotFound, "delete")
	}
	return nil
}

func (c *Collection[T]) write(ctx context.Context, fn func(tx *gorm.DB) error, transactional bool) error {
	if !transactional {
		return fn(c.db.WithContext(ctx))
	}
	return c.db.WithContext(ctx).Transaction(fn)
}

func (c *Collection[T]) mapErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	step := c.name + "." + op
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, c.name+" not found")
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, c.name+" already exists")
	default:
		return pkgerrors.StoreUnavailable(err, step)
	}
}
