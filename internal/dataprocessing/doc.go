// Package dataprocessing turns the text scraped from the exchange's history
// table into the canonical form kept in the history store.
//
// # Normalization
//
// Dates arrive as DD.MM.YYYY and are stored as YYYY-MM-DD. Prices arrive in
// whatever locale the page was rendered in and are stored with a comma
// thousands separator and exactly two decimals:
//
//	dataprocessing.NormalizeDate("31.12.2020").String()  // "2020-12-31"
//	dataprocessing.NormalizePrice("21.500,00").String()  // "21,500.00"
//	dataprocessing.NormalizePrice("1,234.50").String()   // "1,234.50"
//
// Values that cannot be parsed are not errors. They come back as an
// Unparsed Normalized holding the original (or separator-stripped) text so
// the caller can still store them and decide whether to flag them.
//
// Volume and change columns are passed through untouched.
package dataprocessing
