// Package exporter writes the stored trading history to an Excel workbook
// with one sheet per issuer. It only reads the history store.
package exporter
