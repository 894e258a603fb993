package ports

import "net/http"

// HTTPClient defines the interface for making HTTP requests to the bank API.
// Production uses an mTLS client from pkg/http; tests swap in a mock.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
