package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// TxFunc runs inside a transaction when one is available. The context it
// receives must be passed to every collection call that should take part.
type TxFunc func(ctx context.Context) (interface{}, error)

// illegalOperation is returned by standalone servers that cannot start transactions.
const illegalOperation = 20

// RunInTransaction executes fn inside a multi-document transaction. When the
// deployment does not support transactions (a standalone mongod), or enabled is
// false, fn runs once without one.
func RunInTransaction(ctx context.Context, client *mongo.Client, enabled bool, fn TxFunc) (interface{}, error) {
	if !enabled || client == nil {
		return fn(ctx)
	}
	session, err := client.StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return fn(sc)
	})
	if err != nil && IsTransactionUnsupported(err) {
		zap.L().Warn("Transactions not supported by this deployment, running without one", zap.Error(err))
		return fn(ctx)
	}
	return result, err
}

// IsTransactionUnsupported reports whether err means the server cannot run transactions.
func IsTransactionUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == illegalOperation || cmdErr.HasErrorMessage("Transaction numbers are only allowed")
	}
	return false
}
