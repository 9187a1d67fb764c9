package ports

import "net/http"

// HTTPClient is the subset of *http.Client the bank transport needs,
// so tests can substitute canned responses and network failures
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
