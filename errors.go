package kgraph

import "errors"

var (
	// ErrInputNotFound is returned when an input path does not exist.
	ErrInputNotFound = errors.New("kgraph: input not found")

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("kgraph: unsupported document format")

	// ErrParsingFailed is returned when document parsing fails.
	ErrParsingFailed = errors.New("kgraph: parsing failed")

	// ErrEmptyDocument is returned when a document yields no sentences
	// after cleaning.
	ErrEmptyDocument = errors.New("kgraph: document contains no sentences")

	// ErrNoTriples is returned in strict mode when extraction produced an
	// empty graph.
	ErrNoTriples = errors.New("kgraph: no triples extracted")

	// ErrLLMUnavailable is returned when the LLM provider is unreachable.
	ErrLLMUnavailable = errors.New("kgraph: LLM provider unavailable")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("kgraph: invalid configuration")
)
