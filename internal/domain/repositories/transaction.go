package repositories

import "context"

// TxFn is a function that runs within a transaction.
type TxFn func(ctx context.Context) error

// TransactionManager runs functions inside a database transaction.
// Version allocation depends on this: the version insert and the
// counter update must commit or roll back together.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
