package domain

import "time"

// RawDocument is the upstream response as received, used for diagnostics.
type RawDocument struct {
	StatusCode int               `json:"statusCode"`
	Content    string            `json:"content"`
	Headers    map[string]string `json:"headers"`
	FetchedAt  time.Time         `json:"fetchedAt"`
}
