// Package llm turns scanned payment documents into raw payment records.
package llm

import (
	"context"
	"errors"

	"github.com/jask/donormatch/internal/model"
)

// FocusPayer asks the extractor to concentrate on who paid. It is used for
// the second pass over documents whose first extraction named no payer.
const FocusPayer = "payer"

// ExtractRequest lists the documents to read.
type ExtractRequest struct {
	Files []string
	Focus string
}

// Extractor reads documents and returns one raw record per payment found.
// Every returned record carries its SourceDocument.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) ([]*model.RawPaymentRecord, error)
}

// ErrNoAPIKey is returned when a hosted extractor has no credentials.
var ErrNoAPIKey = errors.New("llm: api key not configured")
