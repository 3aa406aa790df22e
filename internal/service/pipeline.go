// Package service wires extraction, dedup, matching and storage into the
// batch operations the CLI and review screen drive.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jask/donormatch/internal/combine"
	"github.com/jask/donormatch/internal/dedup"
	"github.com/jask/donormatch/internal/directory"
	"github.com/jask/donormatch/internal/match"
	"github.com/jask/donormatch/internal/model"
)

// Pipeline turns one batch of raw extractions into enriched records.
type Pipeline struct {
	Dedup  *dedup.Deduplicator
	Scorer match.Scorer

	Threshold          float64
	AutoMatchThreshold float64

	// Workers bounds concurrent match attempts; zero means 4.
	Workers int
	// Preload fetches the whole roster once per batch when the directory
	// can list it.
	Preload bool
	Logger  *zap.SugaredLogger
}

// BatchResult is everything one Process call produced. Records keep the
// dedup output order; discarded records are not in Records.
type BatchResult struct {
	BatchID   string
	Records   []model.EnrichedRecord
	MergeLog  []model.MergeLogEntry
	Discarded []*model.ValidationError
	Errors    []error
}

// Err returns the per-record failures as one error, or nil.
func (r BatchResult) Err() error {
	return asBatchError(r.Errors)
}

// Process runs dedup, validation, matching and projection for one batch.
// Only a malformed batch or a cancelled context fails the call; directory
// failures mark the affected record unmatched and land in Errors.
func (p *Pipeline) Process(ctx context.Context, raw []*model.RawPaymentRecord, dir directory.Directory) (BatchResult, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	d := p.Dedup
	if d == nil {
		d = dedup.New(0, logger)
	}

	res := BatchResult{BatchID: uuid.NewString(), Records: []model.EnrichedRecord{}}
	canonical, mergeLog, err := d.Deduplicate(raw)
	if err != nil {
		return BatchResult{}, err
	}
	res.MergeLog = mergeLog

	valid := make([]model.CanonicalRecord, 0, len(canonical))
	for i := range canonical {
		rec := canonical[i]
		if err := rec.Validate(); err != nil {
			var ve *model.ValidationError
			if !errors.As(err, &ve) {
				return BatchResult{}, err
			}
			res.Discarded = append(res.Discarded, ve)
			logger.Warnw("discarded record", "record_id", rec.ID, "sources", rec.SourceDocuments, "reason", ve.Reason)
			continue
		}
		valid = append(valid, rec)
	}

	snap := p.snapshot(ctx, dir, logger)
	matcher := &match.Matcher{
		Directory:          snap,
		Scorer:             p.Scorer,
		Threshold:          p.Threshold,
		AutoMatchThreshold: p.AutoMatchThreshold,
		Logger:             logger,
	}

	type outcome struct {
		done bool
		rec  model.EnrichedRecord
		err  error
	}
	outcomes := make([]outcome, len(valid))
	runIndexed(ctx, p.Workers, len(valid), func(i int) {
		rec := &valid[i]
		mr, err := matcher.Match(ctx, rec)
		if err != nil {
			outcomes[i] = outcome{done: true, rec: combine.Combine(*rec, nil), err: err}
			return
		}
		outcomes[i] = outcome{done: true, rec: combine.Combine(*rec, &mr)}
	})
	if err := ctx.Err(); err != nil {
		return BatchResult{}, eris.Wrap(err, "process batch")
	}

	for i, o := range outcomes {
		if !o.done {
			continue
		}
		res.Records = append(res.Records, o.rec)
		if o.err == nil {
			continue
		}
		var de *model.DirectoryError
		if !errors.As(o.err, &de) {
			return BatchResult{}, eris.Wrapf(o.err, "match record %s", valid[i].ID)
		}
		logger.Errorw("match failed", "record_id", valid[i].ID, "op", de.Op, "term", de.Term, "error", de.Err)
		res.Errors = append(res.Errors, &model.RecordError{RecordID: valid[i].ID, Err: o.err})
	}

	logger.Infow("batch processed",
		"batch_id", res.BatchID,
		"raw", len(raw),
		"records", len(res.Records),
		"merged_groups", len(res.MergeLog),
		"discarded", len(res.Discarded),
		"errors", len(res.Errors))
	return res, nil
}

// snapshot wraps dir in a batch-scoped cache. A failed preload falls back
// to read-through.
func (p *Pipeline) snapshot(ctx context.Context, dir directory.Directory, logger *zap.SugaredLogger) *directory.Snapshot {
	if !p.Preload {
		return directory.NewSnapshot(dir)
	}
	snap, err := directory.Preload(ctx, dir)
	if err != nil {
		logger.Warnw("directory preload failed, reading through", "error", err)
		return directory.NewSnapshot(dir)
	}
	return snap
}
