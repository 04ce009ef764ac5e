package internal

import "net/http"

// HeaderTransport is a RoundTripper that adds default headers to every
// request, used to carry the per-session bearer token into a platform's
// REST API without each call site repeating it.
type HeaderTransport struct {
	Base    http.RoundTripper
	Headers http.Header
}

func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for key, values := range t.Headers {
		for _, value := range values {
			req.Header.Set(key, value)
		}
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// BearerClient wraps base so that every request carries the given bearer
// token. The base client's retry and timeout behavior is preserved.
func BearerClient(base *http.Client, token string) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	wrapped := *base
	wrapped.Transport = &HeaderTransport{
		Base:    base.Transport,
		Headers: http.Header{"Authorization": []string{"Bearer " + token}},
	}
	return &wrapped
}
