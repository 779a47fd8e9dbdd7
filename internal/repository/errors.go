// Package repository implements the persistence layer over database/sql.
// Shared sentinel errors live here so handlers can translate failures
// into HTTP responses with errors.Is, without inspecting driver errors.
package repository

import "errors"

// ErrAuctionNotFound is returned when no auction with the requested ID
// exists.  Handlers translate this into a 404.
var ErrAuctionNotFound = errors.New("auction not found")

// ErrProductNotFound is returned when no product with the requested ID
// exists.
var ErrProductNotFound = errors.New("product not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by someone else.  Handlers translate this into a 403.
var ErrForbidden = errors.New("forbidden")

// ErrVersionConflict is returned when a guarded save finds the auction's
// version column changed underneath it.  Under row-locked transactions
// this indicates a retried caller should reload and re-validate rather
// than re-submit blindly.  Handlers translate this into a 409.
var ErrVersionConflict = errors.New("auction was modified concurrently")

// ErrOutOfStock is returned when a stock decrement would take the
// product below zero.
var ErrOutOfStock = errors.New("insufficient stock")
