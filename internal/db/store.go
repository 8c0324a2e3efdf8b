package db

import (
	"context"
	"database/sql"

	"github.com/wangchlxt/Swarm-sub001/internal/db/sqlc"
)

// Store is the application's handle on the database: raw queries plus a
// retrying transaction executor over them.
type Store struct {
	*BaseDB

	txExec *TransactionExecutor[*sqlc.Queries]
}

// NewStore wraps an open, migrated connection.
func NewStore(sqlDB *sql.DB) *Store {
	base := NewBaseDB(sqlDB)

	return &Store{
		BaseDB: base,
		txExec: NewTransactionExecutor(
			base, func(tx *sql.Tx) *sqlc.Queries {
				return base.Queries.WithTx(tx)
			},
		),
	}
}

// Queries exposes the non-transactional query set.
func (s *Store) Queries() *sqlc.Queries {
	return s.BaseDB.Queries
}

// TxFunc is a transaction body.
type TxFunc func(ctx context.Context, q *sqlc.Queries) error

// WithTx runs fn in a write transaction.
func (s *Store) WithTx(ctx context.Context, fn TxFunc) error {
	return s.txExec.ExecTx(ctx, WriteTxOption(),
		func(q *sqlc.Queries) error {
			return fn(ctx, q)
		},
	)
}

// WithReadTx runs fn in a read-only transaction.
func (s *Store) WithReadTx(ctx context.Context, fn TxFunc) error {
	return s.txExec.ExecTx(ctx, ReadTxOption(),
		func(q *sqlc.Queries) error {
			return fn(ctx, q)
		},
	)
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.DB.Close()
}
