package coder

import "net/http"

// ResponseEnvelope preserves a full HTTP response (status, headers, body
// and declared media type) so that a cache hit reproduces the original
// response byte for byte. It round-trips through both coders.
type ResponseEnvelope struct {
	StatusCode  int         `json:"status" msgpack:"status"`
	Header      http.Header `json:"header" msgpack:"header"`
	Body        []byte      `json:"body" msgpack:"body"`
	ContentType string      `json:"content_type,omitempty" msgpack:"content_type,omitempty"`
}

// NewResponseEnvelope captures a response. The Content-Type header, if set,
// is recorded as the declared media type.
func NewResponseEnvelope(statusCode int, header http.Header, body []byte) *ResponseEnvelope {
	return &ResponseEnvelope{
		StatusCode:  statusCode,
		Header:      header.Clone(),
		Body:        body,
		ContentType: header.Get("Content-Type"),
	}
}
