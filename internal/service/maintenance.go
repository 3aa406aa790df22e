package service

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	"github.com/jask/donormatch/internal/database"
	"github.com/jask/donormatch/internal/database/repository"
)

// MaintenanceService houses destructive actions surfaced through the CLI.
type MaintenanceService struct {
	DB *sql.DB
}

// ClearBatches drops every stored batch with its records and merge log.
func (s *MaintenanceService) ClearBatches(ctx context.Context) (int64, error) {
	if s.DB == nil {
		return 0, eris.New("maintenance: db not configured")
	}
	n, err := repository.NewBatchRepo(s.DB).DeleteAll(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "maintenance: clear batches")
	}
	return n, nil
}

// Reset wipes all data including the local customer roster. The schema is
// kept.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return eris.New("maintenance: db not configured")
	}
	if err := database.WithTx(s.DB, func(tx *sql.Tx) error {
		for _, t := range []string{"merge_log", "enriched_records", "batches", "customers"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return eris.Wrapf(err, "reset table %s", t)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	return nil
}
