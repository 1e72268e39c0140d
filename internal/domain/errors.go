package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrItemNotFound is returned when a job item cannot be found in the database
	ErrItemNotFound = errors.New("job item not found")

	// ErrNoContent is returned when extraction yields no usable article content
	ErrNoContent = errors.New("no content extracted")

	// ErrFetcherUnavailable is returned when no article fetcher is configured,
	// typically because the scraping API key is missing
	ErrFetcherUnavailable = errors.New("article fetcher unavailable")
)
