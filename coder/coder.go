// Package coder serializes handler return values to storable byte payloads
// and back. Two codings are provided: JSON, the default, human-inspectable
// and interoperable; and msgpack, a binary coding for value types JSON
// cannot represent faithfully. The coding is selected per cached function
// at registration time.
package coder

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Coder converts values to and from byte payloads. Round trips must be
// lossless for the supported value categories: scalars, sequences and maps,
// timestamps, structs with optional fields, and response envelopes.
type Coder interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// DecodeError marks a payload that could not be decoded, e.g. a truncated
// or corrupted entry. Callers treat it as a cache miss rather than a
// request failure.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("coder: decode failed: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err stems from an undecodable payload.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// JSON is the default coder. Timestamps encode as RFC 3339 text, which is
// unambiguous and locale independent.
type JSON struct{}

var _ Coder = JSON{}

func (JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// Msgpack is a binary coder for return types the JSON coding cannot
// represent. Struct fields must be exported to survive the round trip.
type Msgpack struct{}

var _ Coder = Msgpack{}

func (Msgpack) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (Msgpack) Unmarshal(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}
