package services

import "errors"

// Driver errors
var (
	ErrNoIssuers   = errors.New("no issuer codes available")
	ErrUnknownMode = errors.New("unknown run mode")
)
