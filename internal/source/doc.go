// Package source talks to the Macedonian Stock Exchange website.
//
// Client wraps a plain net/http client with a politeness limiter, a
// per-request timeout and a bounded retry on network errors, 5xx and 429
// responses. FetchWindow posts the symbol history form for one issuer and
// date window and parses the first "table.table" of the response.
// ListIssuers reads the issuer symbols from the history page's symbol
// selector.
package source
