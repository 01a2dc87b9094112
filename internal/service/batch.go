package service

import (
	"errors"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrWidgetNotFound       = errors.New("widget not found")
)

// Per-item outcomes of a batch run.
const (
	ItemSucceeded = "succeeded"
	ItemFailed    = "failed"
	ItemSkipped   = "skipped"
)

// ItemResult is the outcome of one scope (organization or widget) in a batch.
type ItemResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BatchResult summarizes a batch run with enough detail to diagnose failures
// without reading logs.
type BatchResult struct {
	Results   []ItemResult `json:"results"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`

	errs *multierror.Error
}

func (b *BatchResult) succeed(id string) {
	b.Succeeded++
	b.Results = append(b.Results, ItemResult{ID: id, Status: ItemSucceeded})
}

func (b *BatchResult) skip(id, reason string) {
	b.Skipped++
	b.Results = append(b.Results, ItemResult{ID: id, Status: ItemSkipped, Error: reason})
}

func (b *BatchResult) fail(id string, err error) {
	b.Failed++
	b.Results = append(b.Results, ItemResult{ID: id, Status: ItemFailed, Error: err.Error()})
	b.errs = multierror.Append(b.errs, err)
}

// Err combines every per-item failure, or returns nil when none failed.
// Per-item failures never make the batch itself return an error.
func (b *BatchResult) Err() error {
	return b.errs.ErrorOrNil()
}
