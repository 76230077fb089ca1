// Package model defines shared types for the proxy.
package model

// UpstreamResponse is a fully read response from the backend.
type UpstreamResponse struct {
	StatusCode int
	// Reason is the reason phrase from the status line, e.g. "Not Found".
	Reason string
	Body   []byte
}

// OK reports whether the backend answered with a 2xx status.
func (r *UpstreamResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
