// Package store wraps the parameterised SQL behind every resource.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"

	"restaurant-pos/internal/utils"
)

// DB is the repository root. Inside RunInTx the same methods run on the transaction.
type DB struct {
	Bun  *bun.DB
	idb  bun.IDB
	inTx bool
}

func New(db *bun.DB) *DB {
	return &DB{Bun: db, idb: db}
}

// IDB exposes the handle the repository currently writes through.
func (d *DB) IDB() bun.IDB {
	return d.idb
}

// RunInTx runs fn in one transaction. Nested calls join the outer transaction.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *DB) error) error {
	if d.inTx {
		return fn(ctx, d)
	}
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &DB{Bun: d.Bun, idb: tx, inTx: true})
	})
}

// NextNumber allocates the next daily document number for prefix, e.g. KOT-20261018-0003.
func (d *DB) NextNumber(ctx context.Context, prefix string, day time.Time) (string, error) {
	var value int64
	err := d.idb.NewRaw(`INSERT INTO sequences (name, current_value) VALUES (?, 1)
ON CONFLICT (name) DO UPDATE SET current_value = sequences.current_value + 1
RETURNING current_value`, utils.SequenceName(prefix, day)).Scan(ctx, &value)
	if err != nil {
		return "", err
	}
	return utils.DocumentNumber(prefix, day, value), nil
}

// Ping checks the underlying connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.Bun.PingContext(ctx)
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// deleteRows is rowsAffected for deletes: a row other rows still point at is a conflict.
func deleteRows(res sql.Result, err error, what, id string) (int64, error) {
	if utils.IsForeignKeyViolation(err) {
		return 0, utils.Conflict("%s %s is still in use", what, id)
	}
	return rowsAffected(res, err)
}

func applyPage(q *bun.SelectQuery, limit, offset int) *bun.SelectQuery {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q = q.Limit(limit)
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}
