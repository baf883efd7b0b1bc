// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidRating is returned when a response rating is not one of
	// again, hard, good or easy.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrInvalidResponseTime is returned when a response time is negative.
	ErrInvalidResponseTime = errors.New("response time cannot be negative")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrBuffersOverlap is returned when a card id appears in more than one
	// session buffer at the same time.
	ErrBuffersOverlap = errors.New("session buffers share a card")
)
