package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/jask/donormatch/internal/model"
)

// BatchRepo stores processed batches, their enriched records and merge log.
type BatchRepo struct{ db *sql.DB }

func NewBatchRepo(db *sql.DB) *BatchRepo { return &BatchRepo{db: db} }

// Save writes a batch with its records and merge log in one transaction.
// Saving an existing batch ID replaces it.
func (r *BatchRepo) Save(ctx context.Context, b Batch, records []model.EnrichedRecord, log []model.MergeLogEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := saveBatch(ctx, tx, b, records, log); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func saveBatch(ctx context.Context, tx *sql.Tx, b Batch, records []model.EnrichedRecord, log []model.MergeLogEntry) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, b.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
	INSERT INTO batches(id, record_count, discarded_count, error_count, created_at)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, b.ID, b.Records, b.Discarded, b.Errors); err != nil {
		return err
	}
	for i, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrapf(err, "repository: encode record %s", rec.ID)
		}
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO enriched_records(batch_id, id, position, match_status, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		`, b.ID, rec.ID, i, string(rec.MatchStatus), string(payload)); err != nil {
			return err
		}
	}
	for _, e := range log {
		sources, err := json.Marshal(e.SourceDocuments)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO merge_log(batch_id, merge_key, merged_count, check_no, amount, source_documents, merged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		`, b.ID, e.MergeKey, e.MergedCount, e.CheckNo, e.Amount.String(), string(sources), e.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

// Get returns nil when the batch does not exist.
func (r *BatchRepo) Get(ctx context.Context, id string) (*Batch, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, record_count, discarded_count, error_count, created_at FROM batches WHERE id = ?`, id)
	var b Batch
	if err := row.Scan(&b.ID, &b.Records, &b.Discarded, &b.Errors, &b.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// List returns batches newest first.
func (r *BatchRepo) List(ctx context.Context) ([]Batch, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, record_count, discarded_count, error_count, created_at FROM batches ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.Records, &b.Discarded, &b.Errors, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Records returns a batch's records in their original order.
func (r *BatchRepo) Records(ctx context.Context, batchID string, f RecordFilter) ([]model.EnrichedRecord, error) {
	q := `SELECT payload FROM enriched_records WHERE batch_id = ?`
	args := []any{batchID}
	if f.Status != "" {
		q += ` AND match_status = ?`
		args = append(args, f.Status)
	}
	q += ` ORDER BY position`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.EnrichedRecord{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var rec model.EnrichedRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, eris.Wrap(err, "repository: decode record")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Record returns nil when the record does not exist.
func (r *BatchRepo) Record(ctx context.Context, batchID, recordID string) (*model.EnrichedRecord, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM enriched_records WHERE batch_id = ? AND id = ?`, batchID, recordID).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var rec model.EnrichedRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, eris.Wrap(err, "repository: decode record")
	}
	return &rec, nil
}

// UpdateRecord replaces a stored record's payload and status.
func (r *BatchRepo) UpdateRecord(ctx context.Context, batchID string, rec model.EnrichedRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE enriched_records SET payload = ?, match_status = ?, updated_at = CURRENT_TIMESTAMP WHERE batch_id = ? AND id = ?`,
		string(payload), string(rec.MatchStatus), batchID, rec.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *BatchRepo) MergeLog(ctx context.Context, batchID string) ([]model.MergeLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT merge_key, merged_count, check_no, amount, source_documents, merged_at FROM merge_log WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MergeLogEntry
	for rows.Next() {
		var (
			e       model.MergeLogEntry
			amount  string
			sources string
		)
		if err := rows.Scan(&e.MergeKey, &e.MergedCount, &e.CheckNo, &amount, &sources, &e.Timestamp); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sources), &e.SourceDocuments); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteAll removes every batch; records and merge log cascade.
func (r *BatchRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM batches`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
