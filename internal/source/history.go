package source

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	apperrors "msecli/internal/errors"
	"msecli/pkg/contracts/domain"
)

// previewBytes bounds the body excerpt kept for logging
const previewBytes = 500

// minHistoryCells is the number of cells a data row must carry
const minHistoryCells = 4

// FetchWindow requests the trading history of issuer for one date window.
// A response without a data table yields TableFound=false and no error.
func (c *Client) FetchWindow(ctx context.Context, issuer string, window domain.DateWindow) (*domain.WindowResult, error) {
	endpoint := strings.TrimRight(c.historyURL, "/") + "/" + url.PathEscape(issuer)
	form := url.Values{
		"fromDate": {window.FromParam()},
		"toDate":   {window.ToParam()},
		"symbol":   {issuer},
		"action":   {"fetchData"},
	}

	body, err := c.doWithRetry(ctx, http.MethodPost, endpoint, form)
	if err != nil {
		return nil, err
	}

	return ParseHistory(body)
}

// ParseHistory extracts the rows of the first "table.table" in body.
// The first row of the table is the header and is skipped, as are rows
// with fewer than four cells.
func ParseHistory(body []byte) (*domain.WindowResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewParsingError("parse history page", err)
	}

	result := &domain.WindowResult{Preview: preview(body)}

	table := doc.Find("table.table").First()
	if table.Length() == 0 {
		return result, nil
	}
	result.TableFound = true

	rows := table.Find("tr")
	if rows.Length() < 2 {
		return result, nil
	}

	rows.Slice(1, goquery.ToEnd).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < minHistoryCells {
			return
		}
		text := func(i int) string {
			return strings.TrimSpace(cells.Eq(i).Text())
		}
		result.Rows = append(result.Rows, domain.RawRow{
			Date:   text(0),
			Price:  text(1),
			Volume: text(2),
			Change: text(3),
		})
	})

	return result, nil
}

func preview(body []byte) string {
	if len(body) > previewBytes {
		body = body[:previewBytes]
	}
	return strings.ToValidUTF8(string(body), "")
}
