package repository

import "context"

// TxnRunner executes fn inside a single storage transaction. Repository calls
// made with the context passed to fn join that transaction, so multi-entity
// units (cancel order + release listing, insert review + advance order) commit
// or roll back together.
type TxnRunner interface {
	WithinTxn(ctx context.Context, fn func(txCtx context.Context) error) error
}
