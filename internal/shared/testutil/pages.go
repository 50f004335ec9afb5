package testutil

import (
	"fmt"
	"html"
	"strings"

	"msecli/pkg/contracts/domain"
)

// HistoryPage renders a symbol history response holding rows
func HistoryPage(rows ...domain.RawRow) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="table">`)
	b.WriteString(`<thead><tr><th>Датум</th><th>Цена на последна трансакција</th><th>Количина</th><th>% пром.</th></tr></thead><tbody>`)
	for _, r := range rows {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			html.EscapeString(r.Date), html.EscapeString(r.Price),
			html.EscapeString(r.Volume), html.EscapeString(r.Change))
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

// EmptyHistoryPage renders a response without a data table
func EmptyHistoryPage() string {
	return `<html><body><div class="alert">Нема податоци за избраниот период</div></body></html>`
}

// ListingPage renders a page whose symbol selector offers codes
func ListingPage(codes ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><form method="post"><select name="symbol" id="Code">`)
	for _, code := range codes {
		fmt.Fprintf(&b, `<option value="%[1]s">%[1]s</option>`, html.EscapeString(code))
	}
	b.WriteString(`</select></form></body></html>`)
	return b.String()
}
