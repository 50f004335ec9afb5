package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// SourceDateLayout is the date layout used by the exchange website
	SourceDateLayout = "02.01.2006"
	// StoreDateLayout is the canonical date layout of persisted records
	StoreDateLayout = "2006-01-02"
)

// HistoryHeader is the header line of the history store
var HistoryHeader = []string{"Issuer Code", "Date", "Price", "Volume", "Change"}

// IssuerCodesHeader is the header line of the issuer-codes store
var IssuerCodesHeader = []string{"Issuer Code"}

// TradingRecord is one persisted row of trading history.
// (IssuerCode, TradeDate) is the natural key.
type TradingRecord struct {
	IssuerCode string `json:"issuer_code" db:"issuer_code" validate:"required"`
	TradeDate  string `json:"trade_date" db:"trade_date" validate:"required"`
	Price      string `json:"price" db:"price"`
	Volume     string `json:"volume" db:"volume"`
	Change     string `json:"change" db:"change"`
}

// Row returns the record in store column order
func (r TradingRecord) Row() []string {
	return []string{r.IssuerCode, r.TradeDate, r.Price, r.Volume, r.Change}
}

// Key returns the natural key of the record
func (r TradingRecord) Key() string {
	return r.IssuerCode + "|" + r.TradeDate
}

// TradingRecordFromRow builds a record from a store row.
// The row must hold exactly len(HistoryHeader) columns.
func TradingRecordFromRow(row []string) (TradingRecord, error) {
	if len(row) != len(HistoryHeader) {
		return TradingRecord{}, fmt.Errorf("expected %d columns, got %d", len(HistoryHeader), len(row))
	}
	return TradingRecord{
		IssuerCode: row[0],
		TradeDate:  row[1],
		Price:      row[2],
		Volume:     row[3],
		Change:     row[4],
	}, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks the record's required fields
func (r TradingRecord) Validate() error {
	return recordValidator().Struct(r)
}

// RawRow is the trimmed cell text of one row of the history table
type RawRow struct {
	Date   string
	Price  string
	Volume string
	Change string
}

// WindowResult is what the history source reports for one date window.
// TableFound is false when the response carried no data table, which means
// there is no data for the window.
type WindowResult struct {
	Rows       []RawRow
	TableFound bool
	// Preview holds the leading bytes of the response body for logging
	Preview string
}

// DateWindow bounds a single history request
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// FromParam formats the window start for the source form
func (w DateWindow) FromParam() string {
	return w.Start.Format(SourceDateLayout)
}

// ToParam formats the window end for the source form
func (w DateWindow) ToParam() string {
	return w.End.Format(SourceDateLayout)
}

// Span returns the length of the window
func (w DateWindow) Span() time.Duration {
	return w.End.Sub(w.Start)
}

// String implements fmt.Stringer
func (w DateWindow) String() string {
	return w.FromParam() + " - " + w.ToParam()
}
