package rag

import "errors"

var (
	// ErrNoRelevantContext indicates retrieval found nothing to answer from.
	ErrNoRelevantContext = errors.New("no relevant context")

	// ErrCitationPromptMissing indicates a prompt set lacks an entry for a
	// file type or template.
	ErrCitationPromptMissing = errors.New("prompt missing")

	// ErrInvalidTransition indicates a query moved between states out of order.
	ErrInvalidTransition = errors.New("invalid query state transition")

	// ErrPageOutOfRange indicates a page jump outside the document.
	ErrPageOutOfRange = errors.New("page out of range")

	// ErrEmptyQuestion indicates a blank question.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrInvalidConfig indicates invalid rag configuration.
	ErrInvalidConfig = errors.New("invalid rag configuration")
)
