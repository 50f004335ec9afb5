// Package services coordinates a complete scrape run.
//
// HistoryService is the driver: it refreshes the issuer-codes file from
// the exchange, then for each issuer asks the catch-up planner whether a
// fetch is due and runs the reconciliation engine. Issuers are processed
// one after another.
//
// # Modes
//
//	catchup  run the engine once when the planner asks for it (default)
//	legacy   planner-gated run followed by an unconditional run, which is
//	         what the original scraper script did
//
// A store failure ends the work on that issuer only. Transport failures
// during discovery fall back to the issuer-codes file already on disk.
//
// # Usage
//
//	svc := services.NewHistoryService(cfg.Fetch, client, history, paths.IssuerCodesCSV,
//	    services.WithLogger(logger))
//	summary, err := svc.Run(ctx, services.RunOptions{})
package services
