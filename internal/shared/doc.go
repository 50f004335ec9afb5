// Package shared holds helpers used by more than one package.
//
// testutil captures structured log output and renders the exchange pages
// used by the source, driver and command tests.
package shared
