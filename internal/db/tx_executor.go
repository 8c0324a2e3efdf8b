package db

import (
	"context"
	"math/rand/v2"
	"time"
)

type txExecutorOptions struct {
	numRetries        int
	initialRetryDelay time.Duration
	maxRetryDelay     time.Duration
}

// retryDelay returns a jittered exponential backoff for attempt.
func (t *txExecutorOptions) retryDelay(attempt int) time.Duration {
	base := t.initialRetryDelay/2 +
		time.Duration(rand.Int64N(int64(t.initialRetryDelay)+1))

	if attempt > 32 {
		attempt = 32
	}
	delay := base << attempt
	if delay <= 0 || delay > t.maxRetryDelay {
		return t.maxRetryDelay
	}

	return delay
}

// TxExecutorOption tweaks a TransactionExecutor.
type TxExecutorOption func(*txExecutorOptions)

// WithTxRetries sets the number of attempts for retryable failures.
func WithTxRetries(n int) TxExecutorOption {
	return func(o *txExecutorOptions) {
		o.numRetries = n
	}
}

// WithTxRetryDelay sets the mean first backoff.
func WithTxRetryDelay(d time.Duration) TxExecutorOption {
	return func(o *txExecutorOptions) {
		o.initialRetryDelay = d
	}
}

// TransactionExecutor runs transaction bodies over query type Q and retries
// them when SQLite reports the database as busy or locked.
type TransactionExecutor[Q any] struct {
	BatchedQuerier

	createQuery QueryCreator[Q]
	opts        txExecutorOptions
}

// NewTransactionExecutor builds an executor over db.
func NewTransactionExecutor[Q any](db BatchedQuerier,
	createQuery QueryCreator[Q],
	opts ...TxExecutorOption) *TransactionExecutor[Q] {

	o := txExecutorOptions{
		numRetries:        DefaultNumTxRetries,
		initialRetryDelay: DefaultInitialRetryDelay,
		maxRetryDelay:     DefaultMaxRetryDelay,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &TransactionExecutor[Q]{
		BatchedQuerier: db,
		createQuery:    createQuery,
		opts:           o,
	}
}

// ExecTx runs body in a transaction, committing on success. Retryable
// errors from begin, body or commit restart the whole transaction after a
// backoff.
func (t *TransactionExecutor[Q]) ExecTx(ctx context.Context, opts TxOptions,
	body func(Q) error) error {

	for attempt := 0; attempt < t.opts.numRetries; attempt++ {
		err := t.execOnce(ctx, opts, body)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}

		delay := t.opts.retryDelay(attempt)
		log.DebugS(ctx, "Retrying busy transaction",
			"attempt", attempt, "delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return ErrRetriesExceeded
}

func (t *TransactionExecutor[Q]) execOnce(ctx context.Context,
	opts TxOptions, body func(Q) error) error {

	tx, err := t.BeginTx(ctx, opts)
	if err != nil {
		return MapSQLError(err)
	}

	// Rollback after a successful commit is a no-op.
	defer func() {
		_ = tx.Rollback()
	}()

	if err := body(t.createQuery(tx)); err != nil {
		return MapSQLError(err)
	}

	return MapSQLError(tx.Commit())
}
