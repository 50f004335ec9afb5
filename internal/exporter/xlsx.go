package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"msecli/internal/store"
	"msecli/pkg/contracts/domain"
)

// maxSheetName is Excel's limit on sheet name length
const maxSheetName = 31

// emptySheet names the only sheet of a workbook exported from an empty store
const emptySheet = "History"

// ExportSummary describes a written workbook
type ExportSummary struct {
	Path    string
	Sheets  []string
	Records int
}

// WorkbookExporter writes history workbooks
type WorkbookExporter struct {
	logger *slog.Logger
}

// NewWorkbookExporter creates an exporter
func NewWorkbookExporter(logger *slog.Logger) *WorkbookExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookExporter{logger: logger}
}

// Export scans s and writes every record to path. Issuers get a sheet each
// in order of first appearance; rows keep their stored order.
func (e *WorkbookExporter) Export(ctx context.Context, s store.Store, path string) (*ExportSummary, error) {
	records, err := s.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan history: %w", err)
	}

	order, groups := groupByIssuer(records)
	if len(order) == 0 {
		order = []string{emptySheet}
	}

	f := excelize.NewFile()
	defer f.Close()

	summary := &ExportSummary{Path: path, Records: len(records)}
	for i, issuer := range order {
		sheet := sheetName(issuer)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return nil, fmt.Errorf("failed to name sheet %s: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}

		if err := writeSheet(f, sheet, groups[issuer]); err != nil {
			return nil, err
		}
		summary.Sheets = append(summary.Sheets, sheet)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("Workbook exported",
		slog.String("path", path),
		slog.Int("sheets", len(summary.Sheets)),
		slog.Int("record_count", summary.Records))

	return summary, nil
}

func writeSheet(f *excelize.File, sheet string, records []domain.TradingRecord) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet %s: %w", sheet, err)
	}

	header := make([]interface{}, len(domain.HistoryHeader))
	for i, h := range domain.HistoryHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{r.IssuerCode, r.TradeDate, r.Price, r.Volume, r.Change}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	return sw.Flush()
}

func groupByIssuer(records []domain.TradingRecord) ([]string, map[string][]domain.TradingRecord) {
	var order []string
	groups := make(map[string][]domain.TradingRecord)
	for _, r := range records {
		if _, ok := groups[r.IssuerCode]; !ok {
			order = append(order, r.IssuerCode)
		}
		groups[r.IssuerCode] = append(groups[r.IssuerCode], r)
	}
	return order, groups
}

// sheetName strips characters Excel forbids in sheet names
func sheetName(issuer string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, issuer)
	if len([]rune(name)) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	if name == "" {
		name = "_"
	}
	return name
}
