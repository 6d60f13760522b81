package client

import "fmt"

type FetchErrorKind string

const (
	KindNetwork FetchErrorKind = "network"
	KindTimeout FetchErrorKind = "timeout"
	KindStatus  FetchErrorKind = "status"
)

// FetchError is returned for any failed page download.
type FetchError struct {
	URL        string
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("failed to fetch data from %s: HTTP %d", e.URL, e.StatusCode)
	case KindTimeout:
		return fmt.Sprintf("timed out fetching %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("failed to reach %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
