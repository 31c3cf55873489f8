package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a database transaction and hands the
// backend-specific handle (pgx.Tx for Postgres) to fn as tx.
//
// Repositories accept that handle as their `qx any` argument and fall back to
// their pool when it is nil, so use cases never see driver types.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		if _, err := logs.FindByID(ctx, tx, userID, chatID); err != nil {
//			return err
//		}
//		return logs.UpdateTitle(ctx, tx, userID, chatID, title)
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
