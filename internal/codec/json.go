// Package codec provides the JSON codec used for invocation payloads.
package codec

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

// ContentType is the media type of every encoded payload.
const ContentType = "application/json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Codec encodes and decodes invocation payloads.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// JSON is a Codec backed by json-iterator in standard-library compatible mode.
type JSON struct{}

func (JSON) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// DecodeReader decodes a single JSON value from r.
func (JSON) DecodeReader(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

// Default is the codec used when none is configured.
var Default Codec = JSON{}

// RawMessage holds an undecoded JSON value.
type RawMessage = jsoniter.RawMessage
