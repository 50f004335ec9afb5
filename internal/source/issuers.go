package source

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	apperrors "msecli/internal/errors"
)

// ListIssuers returns the issuer codes offered by the symbol selector of
// the listing page
func (c *Client) ListIssuers(ctx context.Context) ([]string, error) {
	body, err := c.doWithRetry(ctx, http.MethodGet, c.listingURL, nil)
	if err != nil {
		return nil, err
	}
	return ParseIssuerCodes(body)
}

// ParseIssuerCodes reads the options of select[name="symbol"]. Codes
// containing a digit denote bonds and other non-equity listings and are
// dropped, as are blanks and repeats.
func ParseIssuerCodes(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewParsingError("parse listing page", err)
	}

	seen := make(map[string]bool)
	var codes []string

	doc.Find(`select[name="symbol"] option`).Each(func(_ int, option *goquery.Selection) {
		code := strings.TrimSpace(option.Text())
		if code == "" || seen[code] || strings.ContainsFunc(code, unicode.IsDigit) {
			return
		}
		seen[code] = true
		codes = append(codes, code)
	})

	return codes, nil
}
