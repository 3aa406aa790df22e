package service

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jask/donormatch/internal/database/repository"
	"github.com/jask/donormatch/internal/directory"
	"github.com/jask/donormatch/internal/llm"
	"github.com/jask/donormatch/internal/model"
	"github.com/jask/donormatch/internal/normalize"
)

// Ingestor runs extraction over scanned documents and feeds the result to
// the pipeline. When Batches is set the processed batch is stored.
type Ingestor struct {
	Extractor llm.Extractor
	Pipeline  *Pipeline
	Batches   *repository.BatchRepo
	Logger    *zap.SugaredLogger
}

// Extract reads every file once, then gives documents whose records lack a
// payer one more attempt focused on the payer. Only the payer-less records
// take the retry's reading; the retry is best effort and a failed or still
// payer-less retry keeps the first reading.
func (s *Ingestor) Extract(ctx context.Context, files []string) ([]*model.RawPaymentRecord, error) {
	logger := s.logger()
	if s.Extractor == nil {
		return nil, eris.New("ingest: extractor not configured")
	}
	first, err := s.Extractor.Extract(ctx, llm.ExtractRequest{Files: files})
	if err != nil {
		return nil, eris.Wrap(err, "ingest: extract")
	}

	byBase := make(map[string]string, len(files))
	for _, f := range files {
		byBase[filepath.Base(f)] = f
	}
	var retry []string
	seen := map[string]struct{}{}
	for _, r := range first {
		if r == nil || r.HasPayer() {
			continue
		}
		path, ok := byBase[r.SourceDocument]
		if !ok {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		retry = append(retry, path)
	}
	if len(retry) == 0 {
		return first, nil
	}

	logger.Infow("retrying payer extraction", "documents", len(retry))
	second, err := s.Extractor.Extract(ctx, llm.ExtractRequest{Files: retry, Focus: llm.FocusPayer})
	if err != nil {
		logger.Warnw("payer retry failed", "error", err)
		return first, nil
	}
	recovered := s.pairRetry(first, second)
	logger.Infow("payer retry finished", "documents", len(retry), "recovered", recovered)
	return first, nil
}

// pairRetry fills payer-less records in first, in place, with the payer
// reading of the same payment from second. Records are paired within a
// document by cleaned check number and amount; a document with a single
// payer-less record and a single payer reading pairs those two. Records that
// already had a payer are never touched.
func (s *Ingestor) pairRetry(first, second []*model.RawPaymentRecord) int {
	keep := 0
	if s.Pipeline != nil && s.Pipeline.Dedup != nil {
		keep = s.Pipeline.Dedup.CheckNumberKeep
	}
	key := func(r *model.RawPaymentRecord) string {
		return r.SourceDocument + "|" + normalize.CleanCheckNumber(r.Payment.CheckNo, keep) + "|" + r.Payment.Amount.String()
	}

	byKey := map[string][]*model.RawPaymentRecord{}
	byDoc := map[string][]*model.RawPaymentRecord{}
	for _, r := range second {
		if r == nil || !r.HasPayer() {
			continue
		}
		byKey[key(r)] = append(byKey[key(r)], r)
		byDoc[r.SourceDocument] = append(byDoc[r.SourceDocument], r)
	}
	missing := map[string]int{}
	for _, r := range first {
		if r != nil && !r.HasPayer() {
			missing[r.SourceDocument]++
		}
	}

	used := map[*model.RawPaymentRecord]bool{}
	recovered := 0
	for i, r := range first {
		if r == nil || r.HasPayer() {
			continue
		}
		var match *model.RawPaymentRecord
		for _, c := range byKey[key(r)] {
			if !used[c] {
				match = c
				break
			}
		}
		if match == nil && missing[r.SourceDocument] == 1 && len(byDoc[r.SourceDocument]) == 1 {
			if c := byDoc[r.SourceDocument][0]; !used[c] {
				match = c
			}
		}
		if match == nil {
			continue
		}
		used[match] = true
		merged := *r
		merged.Payer = match.Payer
		if merged.Contact.Address.IsZero() {
			merged.Contact.Address = match.Contact.Address
		}
		if merged.Contact.Email == "" {
			merged.Contact.Email = match.Contact.Email
		}
		if merged.Contact.Phone == "" {
			merged.Contact.Phone = match.Contact.Phone
		}
		first[i] = &merged
		recovered++
	}
	return recovered
}

// IngestFiles extracts, processes and optionally stores one batch.
func (s *Ingestor) IngestFiles(ctx context.Context, files []string, dir directory.Directory) (BatchResult, error) {
	raw, err := s.Extract(ctx, files)
	if err != nil {
		return BatchResult{}, err
	}
	return s.ProcessRaw(ctx, raw, dir)
}

// ProcessRaw runs the pipeline over already extracted records.
func (s *Ingestor) ProcessRaw(ctx context.Context, raw []*model.RawPaymentRecord, dir directory.Directory) (BatchResult, error) {
	p := s.Pipeline
	if p == nil {
		p = &Pipeline{Logger: s.logger()}
	}
	res, err := p.Process(ctx, raw, dir)
	if err != nil {
		return BatchResult{}, err
	}
	if s.Batches == nil {
		return res, nil
	}
	b := repository.Batch{
		ID:        res.BatchID,
		Records:   len(res.Records),
		Discarded: len(res.Discarded),
		Errors:    len(res.Errors),
	}
	if err := s.Batches.Save(ctx, b, res.Records, res.MergeLog); err != nil {
		return res, eris.Wrapf(err, "ingest: save batch %s", res.BatchID)
	}
	return res, nil
}

func (s *Ingestor) logger() *zap.SugaredLogger {
	if s.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return s.Logger
}
