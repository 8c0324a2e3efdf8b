package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/wangchlxt/Swarm-sub001/internal/db/sqlc"
)

const (
	// DefaultNumTxRetries is how many times a busy transaction is tried.
	DefaultNumTxRetries = 10

	// DefaultInitialRetryDelay is the mean first backoff. Each delay is
	// drawn from 50%-150% of the base and doubles per attempt.
	DefaultInitialRetryDelay = 40 * time.Millisecond

	// DefaultMaxRetryDelay caps the backoff.
	DefaultMaxRetryDelay = 3 * time.Second
)

// TxOptions selects a read or write transaction.
type TxOptions interface {
	ReadOnly() bool
}

type txOptions bool

func (t txOptions) ReadOnly() bool {
	return bool(t)
}

// ReadTxOption requests a read-only transaction.
func ReadTxOption() TxOptions {
	return txOptions(true)
}

// WriteTxOption requests a read-write transaction.
func WriteTxOption() TxOptions {
	return txOptions(false)
}

// BatchedTx runs a body against query interface Q inside one transaction.
type BatchedTx[Q any] interface {
	ExecTx(ctx context.Context, opts TxOptions, body func(Q) error) error
}

// QueryCreator binds a query interface to a transaction.
type QueryCreator[Q any] func(*sql.Tx) Q

// BatchedQuerier can run queries directly or start a transaction.
type BatchedQuerier interface {
	sqlc.Querier

	BeginTx(ctx context.Context, opts TxOptions) (*sql.Tx, error)
}

// BaseDB pairs the connection with non-transactional queries.
type BaseDB struct {
	*sql.DB

	*sqlc.Queries
}

// NewBaseDB wraps sqlDB.
func NewBaseDB(sqlDB *sql.DB) *BaseDB {
	return &BaseDB{
		DB:      sqlDB,
		Queries: sqlc.New(sqlDB),
	}
}

// BeginTx maps TxOptions onto sql.TxOptions.
func (b *BaseDB) BeginTx(ctx context.Context, opts TxOptions) (*sql.Tx,
	error) {

	return b.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: opts.ReadOnly()})
}
