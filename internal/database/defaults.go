package database

import (
	"context"
	"database/sql"

	"github.com/jask/donormatch/internal/database/repository"
	"github.com/jask/donormatch/internal/model"
)

// SeedCustomers fills an empty customer directory. It is idempotent: a
// directory that already holds customers is left alone.
func SeedCustomers(ctx context.Context, db *sql.DB, customers []model.Customer) (int, error) {
	repo := repository.NewCustomerRepo(db)
	n, err := repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	err = WithTx(db, func(tx *sql.Tx) error {
		txRepo := repository.NewCustomerRepo(tx)
		for _, c := range customers {
			if err := txRepo.Upsert(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(customers), nil
}
