package models

import "errors"

// Sentinel errors shared by all marketplace services. Services wrap these
// with fmt.Errorf("...: %w", ...) so callers and HTTP handlers can match
// with errors.Is.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrSupplyExhausted = errors.New("supply exhausted")
	ErrInvalidArgument = errors.New("invalid argument")

	// Payment-token failures. These propagate unmodified through the
	// primary and secondary markets.
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)
