package repositories

import "context"

// TxFn runs inside a transaction. The passed context carries the
// transaction; repository calls made with it join the same unit of work.
type TxFn func(ctx context.Context) error

// TransactionManager runs functions transactionally. Mutations that touch
// several rows (moves, subtree deletes, reorders) go through it so they
// commit or roll back as one.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
