package reconcile

import (
	"context"
	"time"

	"msecli/internal/store"
	"msecli/pkg/contracts/domain"
)

// NeedsFetch reports whether issuer should be reconciled at now. The last
// record appended for issuer decides: none, an unparseable date, or a date
// before today's calendar day all need a fetch.
func NeedsFetch(ctx context.Context, s store.Store, issuer string, now time.Time) (bool, error) {
	records, err := s.Scan(ctx)
	if err != nil {
		return false, err
	}
	return needsFetch(records, issuer, now), nil
}

func needsFetch(records []domain.TradingRecord, issuer string, now time.Time) bool {
	last, ok := LastRecord(records, issuer)
	if !ok {
		return true
	}

	lastDate, err := time.ParseInLocation(domain.StoreDateLayout, last.TradeDate, now.Location())
	if err != nil {
		return true
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return lastDate.Before(today)
}

// LastRecord returns the most recently appended record for issuer. Append
// order decides, not the trade date.
func LastRecord(records []domain.TradingRecord, issuer string) (domain.TradingRecord, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].IssuerCode == issuer {
			return records[i], true
		}
	}
	return domain.TradingRecord{}, false
}
