package dedup

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/jask/donormatch/internal/model"
)

// DecodeBatch reads a JSON array of raw payment records. Anything that is not
// an array of objects fails the whole batch with a DeduplicationError.
func DecodeBatch(r io.Reader) ([]*model.RawPaymentRecord, error) {
	var items []json.RawMessage
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, &model.DeduplicationError{Err: eris.Wrap(err, "batch is not a JSON array")}
	}
	out := make([]*model.RawPaymentRecord, 0, len(items))
	for i, item := range items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, &model.DeduplicationError{Err: eris.Errorf("item %d is not an object", i)}
		}
		var rec model.RawPaymentRecord
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return nil, &model.DeduplicationError{Err: eris.Wrapf(err, "item %d", i)}
		}
		out = append(out, &rec)
	}
	return out, nil
}
