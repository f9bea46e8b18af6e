package lawlens

import (
	"errors"

	"lawlens/assess"
)

var (
	// ErrInvalidRequest is returned when an analysis request fails
	// validation: unknown mode, or the mode's required input is missing.
	ErrInvalidRequest = errors.New("lawlens: invalid analysis request")

	// ErrDocumentNotFound is returned when the document to analyze does
	// not exist.
	ErrDocumentNotFound = errors.New("lawlens: document not found")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("lawlens: invalid configuration")

	// ErrAssessorContract is returned when the assessor's response cannot
	// be parsed into the output contract, even after repair.
	ErrAssessorContract = assess.ErrContract
)
