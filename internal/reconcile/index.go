package reconcile

import (
	"context"

	"msecli/internal/store"
	"msecli/pkg/contracts/domain"
)

// ExistenceIndex answers whether a trade date is already stored for one
// issuer. It is built from a single scan and grows as rows are accepted.
type ExistenceIndex struct {
	issuer string
	dates  map[string]struct{}
}

// BuildIndex scans s once and indexes the dates stored for issuer
func BuildIndex(ctx context.Context, s store.Store, issuer string) (*ExistenceIndex, error) {
	records, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return NewExistenceIndex(issuer, records), nil
}

// NewExistenceIndex indexes the records belonging to issuer
func NewExistenceIndex(issuer string, records []domain.TradingRecord) *ExistenceIndex {
	idx := &ExistenceIndex{issuer: issuer, dates: make(map[string]struct{})}
	for _, r := range records {
		if r.IssuerCode == issuer {
			idx.dates[r.TradeDate] = struct{}{}
		}
	}
	return idx
}

// Exists reports whether date is recorded. Dates compare as stored text.
func (x *ExistenceIndex) Exists(date string) bool {
	_, ok := x.dates[date]
	return ok
}

// Add records date as present
func (x *ExistenceIndex) Add(date string) {
	x.dates[date] = struct{}{}
}

// Len returns the number of indexed dates
func (x *ExistenceIndex) Len() int {
	return len(x.dates)
}

// Issuer returns the issuer the index covers
func (x *ExistenceIndex) Issuer() string {
	return x.issuer
}
