package mongo

import (
	"context"
	"fmt"

	"github.com/Will-hxw/1688/internal/repository"
	"go.mongodb.org/mongo-driver/mongo"
)

type txnRunner struct {
	client *mongo.Client
}

// NewTxnRunner wraps a client session so that multi-document units commit or
// roll back together. The context passed to fn is a mongo.SessionContext;
// repository calls made with it join the transaction automatically.
func NewTxnRunner(client *mongo.Client) repository.TxnRunner {
	return &txnRunner{client: client}
}

func (t *txnRunner) WithinTxn(ctx context.Context, fn func(txCtx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start mongo session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
