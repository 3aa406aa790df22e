package llm

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/jask/donormatch/internal/dedup"
	"github.com/jask/donormatch/internal/model"
)

// FileExtractor reads extractions saved next to each scan: scan.jpg is
// answered by scan.json. With the payer focus, scan.payer.json is preferred
// when present. A .json input is read as-is.
type FileExtractor struct{}

func (FileExtractor) Extract(_ context.Context, req ExtractRequest) ([]*model.RawPaymentRecord, error) {
	var out []*model.RawPaymentRecord
	for _, path := range req.Files {
		sidecar, err := sidecarFor(path, req.Focus)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(sidecar)
		if err != nil {
			return nil, eris.Wrapf(err, "file extractor: %s", filepath.Base(path))
		}
		recs, err := dedup.DecodeBatch(f)
		_ = f.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "file extractor: %s", filepath.Base(sidecar))
		}
		source := filepath.Base(path)
		for _, r := range recs {
			if strings.TrimSpace(r.SourceDocument) == "" {
				r.SourceDocument = source
			}
		}
		out = append(out, recs...)
	}
	return out, nil
}

func sidecarFor(path, focus string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return path, nil
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if focus == FocusPayer {
		if _, err := os.Stat(base + ".payer.json"); err == nil {
			return base + ".payer.json", nil
		}
	}
	if _, err := os.Stat(base + ".json"); err != nil {
		return "", eris.Wrapf(err, "file extractor: no extraction for %s", filepath.Base(path))
	}
	return base + ".json", nil
}
