package domain

import "errors"

var (
	// ErrTranslationNotFound is returned when a product has no localized search term
	ErrTranslationNotFound = errors.New("no localized term for product")

	// ErrSessionUnavailable is returned when the browser session cannot be created
	// or the target site cannot be loaded; fatal to the whole batch
	ErrSessionUnavailable = errors.New("price search session unavailable")

	// ErrControlUnavailable is returned when a page control cannot be located or
	// interacted with inside its timeout; isolated to one item
	ErrControlUnavailable = errors.New("page control unavailable")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
